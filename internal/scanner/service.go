package scanner

import (
	"context"

	"github.com/fenilsonani/diskscope/internal/catalog"
	"github.com/fenilsonani/diskscope/internal/response"
)

var (
	listMessages = map[catalog.Category]string{
		catalog.Cache:      "Cache files retrieved successfully",
		catalog.Trash:      "Trash files retrieved successfully",
		catalog.Logs:       "System logs retrieved successfully",
		catalog.LargeFiles: "Large files retrieved successfully",
	}
	summaryMessages = map[catalog.Category]string{
		catalog.Cache:      "Cache summary retrieved successfully",
		catalog.Trash:      "Trash summary retrieved successfully",
		catalog.Logs:       "Log summary retrieved successfully",
		catalog.LargeFiles: "Large files summary retrieved successfully",
	}
)

// Service wraps a Scanner and reports results as response envelopes
type Service struct {
	scanner *Scanner
}

func NewService(s *Scanner) *Service {
	return &Service{scanner: s}
}

// List runs the list scan of category
func (svc *Service) List(ctx context.Context, category catalog.Category) response.Envelope {
	var (
		data response.Payload
		err  error
	)

	switch category {
	case catalog.Cache:
		data, err = listPayload(svc.scanner.ScanCache(ctx))
	case catalog.Trash:
		data, err = listPayload(svc.scanner.ScanTrash(ctx))
	case catalog.Logs:
		data, err = listPayload(svc.scanner.ScanLogs(ctx))
	case catalog.LargeFiles:
		data, err = listPayload(svc.scanner.ScanLargeFiles(ctx))
	default:
		return response.Errorf("Unknown category: %s", category)
	}

	if err != nil {
		return response.Errorf("Failed to scan %s: %v", category, err)
	}
	return response.Success(listMessages[category], data)
}

// Summary runs the summary scan of category
func (svc *Service) Summary(ctx context.Context, category catalog.Category) response.Envelope {
	if _, ok := summaryMessages[category]; !ok {
		return response.Errorf("Unknown category: %s", category)
	}

	sum, err := svc.scanner.Summarize(ctx, category)
	if err != nil {
		return response.Errorf("Failed to summarize %s: %v", category, err)
	}
	return response.Success(summaryMessages[category], response.Object[Summary]{V: sum})
}

func listPayload[R any](records []R, err error) (response.Payload, error) {
	if err != nil {
		return nil, err
	}
	return response.List[R](records), nil
}
