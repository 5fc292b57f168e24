package models

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"
)

type productCodeReader struct{}

func (r *productCodeReader) getProductsByCode(ctx context.Context, codes []string) []*dataloader.Result[*Product] {
	byCode, err := GetProductsByCodes(ctx, codes)
	if err != nil {
		return handleLoaderError[*Product](len(codes), err)
	}

	loaderResults := make([]*dataloader.Result[*Product], 0, len(codes))
	for _, code := range codes {
		// A catalog miss is a nil product, not an error.
		loaderResults = append(loaderResults, &dataloader.Result[*Product]{Data: byCode[code]})
	}
	return loaderResults
}

// NewProductLoader returns a batched catalog loader. One is created per
// reconciliation run so its in-flight cache lives no longer than the run.
func NewProductLoader() *dataloader.Loader[string, *Product] {
	reader := &productCodeReader{}
	return dataloader.NewBatchedLoader(reader.getProductsByCode, dataloader.WithWait[string, *Product](time.Millisecond))
}

// handleLoaderError creates array of result with the same error repeated for as many items requested
func handleLoaderError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}
