package services

// HealthService reports process liveness. Readiness of the backing stores
// is left to their own connection retries.
type HealthService struct{}

func NewHealthService() *HealthService {
	return &HealthService{}
}

func (s *HealthService) Get() error {
	return nil
}
