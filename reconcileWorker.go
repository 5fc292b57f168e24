package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"

	"bitbucket.org/agasretail/erpsync_backend/config"
	"bitbucket.org/agasretail/erpsync_backend/utils"
	"bitbucket.org/agasretail/erpsync_backend/workflow"
	"cloud.google.com/go/pubsub"
	"github.com/sirupsen/logrus"
)

var (
	orderMutexMap = make(map[string]*sync.Mutex)
	globalMutex   = &sync.Mutex{}
)

// RunReconcileWorker subscribes to the reconcile topic and processes
// jobs until ctx is cancelled. In-process serialization is per order
// code; cross-instance serialization comes from the advisory lock in
// ProcessReconcileJob.
func RunReconcileWorker(ctx context.Context, submitter workflow.ErpSubmitter, employees workflow.EmployeeDirectory) error {
	logger := config.GetLogger()
	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}
	topic, err := config.CreateTopicIfNotExists(client, os.Getenv("PUBSUB_TOPIC"))
	if err != nil {
		return err
	}
	sub, err := config.CreateSubscriptionIfNotExists(client, os.Getenv("PUBSUB_SUBSCRIPTION"), topic)
	if err != nil {
		return err
	}
	// Specify the number of concurrent processes
	sub.ReceiveSettings.MaxOutstandingMessages = 10

	// Create a callback function to handle messages.
	callback := func(ctx context.Context, msg *pubsub.Message) {
		job := config.ReconcileJob{}
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			config.LogError(logger, "ReconcileWorker.go", "RunReconcileWorker", "Unmarshaling reconcile job", msg.Data, err)
			// Poisoned payload: ack, a redelivery cannot fix it.
			msg.Ack()
			return
		}
		if job.OrderCode == "" {
			config.LogError(logger, "ReconcileWorker.go", "RunReconcileWorker", "Reconcile job missing order_code", string(msg.Data), errors.New("order_code required"))
			msg.Ack()
			return
		}

		// Get or create the mutex for the current order code
		globalMutex.Lock()
		mutex, exists := orderMutexMap[job.OrderCode]
		if !exists {
			mutex = &sync.Mutex{}
			orderMutexMap[job.OrderCode] = mutex
		}
		globalMutex.Unlock()

		// Lock the specific order mutex
		mutex.Lock()
		defer mutex.Unlock()

		correlationID := job.CorrelationId
		if correlationID == "" {
			correlationID = msg.ID
		}
		ctx = utils.SetOrderCodeInContext(ctx, job.OrderCode)
		ctx = utils.SetUserNameInContext(ctx, "System")
		ctx = utils.SetCorrelationIdInContext(ctx, correlationID)
		if err := workflow.ProcessReconcileJob(ctx, job, msg.ID, "ReconcilePull", submitter, employees); err != nil {
			logger.WithFields(logrus.Fields{
				"field":          "ReconcileWorker",
				"order_code":     job.OrderCode,
				"message_id":     msg.ID,
				"correlation_id": correlationID,
			}).Error("pubsub processing failed: " + err.Error())
			msg.Nack()
			return
		}
		msg.Ack()
	}

	// Receive messages.
	go func() {
		err := sub.Receive(ctx, callback)
		if err != nil {
			config.LogError(logger, "ReconcileWorker.go", "RunReconcileWorker", "Failed to receive messages", nil, err)
		}
	}()

	return nil
}
