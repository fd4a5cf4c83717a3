package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/audiotopo/internal/api/models"
	"github.com/smazurov/audiotopo/internal/topology"
)

// registerDeviceRoutes registers the device listing and report endpoints.
func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "List the endpoints matching the configured data flow, state mask and filter",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.DevicesResponse, error) {
		devices, err := s.inspector.Devices(ctx)
		if err != nil {
			if ctxErr := contextError(err); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, huma.Error500InternalServerError("failed to enumerate devices", err)
		}
		return &models.DevicesResponse{
			Body: models.DevicesData{Devices: devices, Count: len(devices)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-device-report",
		Method:      http.MethodGet,
		Path:        "/api/devices/{device_id}/report",
		Summary:     "Device Report",
		Description: "Walk the topology of one endpoint and read its property store",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500, 504},
	}, func(ctx context.Context, input *models.ReportRequest) (*models.ReportResponse, error) {
		report, err := s.inspector.Inspect(ctx, input.DeviceID)
		switch {
		case err == nil:
			return &models.ReportResponse{Body: report}, nil
		case topology.IsCode(err, topology.ErrCodeDeviceNotFound):
			return nil, huma.Error404NotFound("device not found: " + input.DeviceID)
		}
		if ctxErr := contextError(err); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, huma.Error500InternalServerError("failed to inspect device", err)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-reports",
		Method:      http.MethodGet,
		Path:        "/api/reports",
		Summary:     "All Reports",
		Description: "Walk every selected endpoint and return one report per device",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 500, 504},
	}, func(ctx context.Context, _ *struct{}) (*models.ReportsResponse, error) {
		reports, err := s.inspector.InspectAll(ctx)
		if err != nil {
			if ctxErr := contextError(err); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, huma.Error500InternalServerError("failed to inspect devices", err)
		}
		diagnostics := 0
		for _, r := range reports {
			diagnostics += len(r.Diagnostics)
		}
		return &models.ReportsResponse{
			Body: models.ReportsData{Reports: reports, Count: len(reports), Diagnostics: diagnostics},
		}, nil
	})
}
