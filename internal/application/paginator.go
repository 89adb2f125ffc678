package application

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// PageFunc fetches the first page of a listing.
type PageFunc func(ctx context.Context) (model.Page, error)

// NextPageFunc fetches the page following prev.
type NextPageFunc func(ctx context.Context, prev model.Page) (model.Page, error)

// PageHandler processes one page of items. Returning stop=true ends the scan
// early (a cap was reached); a non-nil error aborts it.
type PageHandler func(ctx context.Context, items []model.Item) (stop bool, err error)

// Scan drives sequential page fetches until the listing is exhausted or
// onPage asks to stop. An empty page, including an empty first page, counts
// as exhaustion. Fetch errors are returned as-is; callers wrap first and next
// in WithRetry.
//
// Scan returns model.RunCapped when onPage stopped it and model.RunExhausted
// otherwise.
func Scan(ctx context.Context, first PageFunc, next NextPageFunc, hasNext func(model.Page) bool, onPage PageHandler) (model.RunState, error) {
	page, err := first(ctx)
	if err != nil {
		return model.RunFailed, err
	}

	for pageNum := 1; ; pageNum++ {
		if len(page.Items) == 0 {
			slog.Info("found no more items", "page", pageNum)
			return model.RunExhausted, nil
		}

		slog.Info("processing page", "page", pageNum, "items", len(page.Items))
		slog.Debug("page contents", "page", pageNum, "numbers", itemNumbers(page.Items))

		stop, err := onPage(ctx, page.Items)
		if err != nil {
			return model.RunFailed, err
		}
		slog.Info("done processing page", "page", pageNum)
		if stop {
			return model.RunCapped, nil
		}

		if !hasNext(page) {
			return model.RunExhausted, nil
		}

		page, err = next(ctx, page)
		if err != nil {
			return model.RunFailed, err
		}
	}
}

func itemNumbers(items []model.Item) []int {
	numbers := make([]int, 0, len(items))
	for _, item := range items {
		numbers = append(numbers, item.Number)
	}
	return numbers
}
