package usecase

import "context"

// MetricsSummary represents aggregated segmentation insights.
type MetricsSummary struct {
	TotalRequests            int64   `json:"total_requests"`
	TotalObjectsDetected     int64   `json:"total_objects_detected"`
	AverageObjectsPerRequest float64 `json:"average_objects_per_request"`
	AverageProcessingTime    float64 `json:"average_processing_time"`
}

// GetMetricsSummary aggregates segmentation metrics from persisted logs.
func (uc *SegmentationUseCase) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	aggregation, err := uc.repo.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	return &MetricsSummary{
		TotalRequests:            aggregation.TotalCount,
		TotalObjectsDetected:     aggregation.TotalObjects,
		AverageObjectsPerRequest: aggregation.AverageObjects,
		AverageProcessingTime:    aggregation.AverageProcessingTime,
	}, nil
}
