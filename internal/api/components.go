package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/toggler/internal/api/models"
	"github.com/smazurov/toggler/internal/metrics"
	"github.com/smazurov/toggler/internal/runner"
	"github.com/smazurov/toggler/internal/toggler"
)

// ComponentHost is what the API needs from the runner.
type ComponentHost interface {
	Components() []runner.ComponentInfo
	Component(name string) (runner.ComponentInfo, bool)
	DoCommand(ctx context.Context, name string, cmd map[string]any, timeout time.Duration) (map[string]any, error)
	Geometries(ctx context.Context, name string) ([]toggler.Geometry, error)
	Generation() uint64
}

var _ ComponentHost = (*runner.Runner)(nil)

func (s *Server) registerComponentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-components",
		Method:      http.MethodGet,
		Path:        "/api/components",
		Summary:     "List Components",
		Description: "List running components with their binding and counters",
		Tags:        []string{"components"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.ComponentListResponse, error) {
		infos := s.host.Components()
		list := make([]models.ComponentData, 0, len(infos))
		for _, info := range infos {
			list = append(list, componentData(info))
		}
		return &models.ComponentListResponse{
			Body: models.ComponentListData{Components: list, Count: len(list)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-component",
		Method:      http.MethodGet,
		Path:        "/api/components/{name}",
		Summary:     "Get Component",
		Description: "Get a single running component",
		Tags:        []string{"components"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.ComponentPathInput) (*models.ComponentResponse, error) {
		info, ok := s.host.Component(input.Name)
		if !ok {
			return nil, huma.Error404NotFound("component " + input.Name + " not found")
		}
		return &models.ComponentResponse{Body: componentData(info)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "do-command",
		Method:      http.MethodPost,
		Path:        "/api/components/{name}/do_command",
		Summary:     "Do Command",
		Description: "Send a generic command to a component. {\"action\": \"toggle\"} flips the bound pin.",
		Tags:        []string{"components"},
		Errors:      []int{400, 401, 404, 409, 502, 504},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.DoCommandRequest) (*models.DoCommandResponse, error) {
		timeout := time.Duration(input.Body.TimeoutMs) * time.Millisecond
		result, err := s.host.DoCommand(ctx, input.Name, input.Body.Command, timeout)
		if err != nil {
			return nil, componentError(err)
		}
		return &models.DoCommandResponse{Body: models.DoCommandData{Result: result}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-geometries",
		Method:      http.MethodGet,
		Path:        "/api/components/{name}/geometries",
		Summary:     "Get Geometries",
		Description: "Geometries are not supported by toggler components",
		Tags:        []string{"components"},
		Errors:      []int{401, 404, 501},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.ComponentPathInput) (*struct{}, error) {
		if _, err := s.host.Geometries(ctx, input.Name); err != nil {
			return nil, componentError(err)
		}
		return &struct{}{}, nil
	})
}

func componentData(info runner.ComponentInfo) models.ComponentData {
	data := models.ComponentData{
		Name:             info.Name,
		Model:            info.Model,
		Board:            info.Board,
		Pin:              info.Pin,
		SerializeToggles: info.SerializeToggles,
		Generation:       info.Generation,
	}
	if st := metrics.GetComponentStats(info.Name); st != nil {
		data.Toggles = st.Toggles
		data.Failures = st.Failures
		if !st.LastToggle.IsZero() {
			high := st.High
			last := st.LastToggle.UTC().Format(time.RFC3339)
			data.High = &high
			data.LastToggle = &last
		}
	}
	return data
}

// componentError maps runner and toggler errors to HTTP statuses. The error
// code travels in the error detail so clients need not parse messages.
func componentError(err error) error {
	if errors.Is(err, runner.ErrComponentNotFound) {
		return huma.Error404NotFound("component not found", err)
	}

	code := toggler.CodeOf(err)
	detail := &huma.ErrorDetail{Message: err.Error(), Location: "code", Value: code}

	switch {
	case toggler.KindOf(err) == toggler.KindConfigValidation:
		return huma.Error400BadRequest("invalid component configuration", detail)
	case toggler.KindOf(err) == toggler.KindDependencyResolution:
		return huma.Error409Conflict("component dependency unavailable", detail)
	case code == toggler.ErrCodePinNotFound:
		return huma.Error404NotFound("pin not found", detail)
	case code == toggler.ErrCodeTimeout:
		return huma.Error504GatewayTimeout("pin operation timed out", detail)
	case code == toggler.ErrCodeIO:
		return huma.Error502BadGateway("pin operation failed", detail)
	case code == toggler.ErrCodeNotImplemented:
		return huma.Error501NotImplemented("not implemented", detail)
	default:
		return huma.Error500InternalServerError("command failed", err)
	}
}
