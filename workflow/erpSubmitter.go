package workflow

import (
	"context"

	"bitbucket.org/agasretail/erpsync_backend/config"
	"bitbucket.org/agasretail/erpsync_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErpSubmitter hands finished invoice lines to the downstream ERP
// boundary. Wire assembly and delivery retries live behind the
// implementation; reconciliation only produces the lines.
type ErpSubmitter interface {
	SubmitInvoiceLines(ctx context.Context, orderCode string, lines []*models.InvoiceLine) error
}

// LogSubmitter is the default sink: a structured summary of the run.
// Used in every environment the ERP endpoint is not configured for.
type LogSubmitter struct {
	Logger *logrus.Logger
}

func NewLogSubmitter(logger *logrus.Logger) *LogSubmitter {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &LogSubmitter{Logger: logger}
}

func (s *LogSubmitter) SubmitInvoiceLines(ctx context.Context, orderCode string, lines []*models.InvoiceLine) error {
	var matched, synthetic, passThrough int
	amount := decimal.Zero
	for _, line := range lines {
		switch line.Provenance {
		case models.ProvenanceMatched:
			matched++
		case models.ProvenanceSynthetic:
			synthetic++
		case models.ProvenancePassThrough:
			passThrough++
		}
		amount = amount.Add(line.Amount)
	}
	s.Logger.WithFields(logrus.Fields{
		"module":       "ErpSubmitter.go",
		"funcName":     "SubmitInvoiceLines",
		"order_code":   orderCode,
		"lines":        len(lines),
		"matched":      matched,
		"synthetic":    synthetic,
		"pass_through": passThrough,
		"amount":       amount.String(),
	}).Info("invoice lines ready")
	return nil
}
