package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/phmapp/phm-server/internal/domain"
	"github.com/phmapp/phm-server/internal/service"
)

func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "registerDevice",
		Method:      http.MethodPost,
		Path:        "/api/v1/devices",
		Summary:     "Register device",
		Description: "Creates a capture device and returns its key. The key is shown exactly once.",
		Tags:        []string{"Devices"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRegisterDevice)

	huma.Register(s.api, huma.Operation{
		OperationID: "listDevices",
		Method:      http.MethodGet,
		Path:        "/api/v1/devices",
		Summary:     "List devices",
		Description: "Returns all of the user's devices, revoked included",
		Tags:        []string{"Devices"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListDevices)

	huma.Register(s.api, huma.Operation{
		OperationID: "getDevice",
		Method:      http.MethodGet,
		Path:        "/api/v1/devices/{id}",
		Summary:     "Get device",
		Description: "Returns a device by ID",
		Tags:        []string{"Devices"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetDevice)

	huma.Register(s.api, huma.Operation{
		OperationID: "revokeDevice",
		Method:      http.MethodDelete,
		Path:        "/api/v1/devices/{id}",
		Summary:     "Revoke device",
		Description: "Revokes the device key. The device stays listed for audit.",
		Tags:        []string{"Devices"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRevokeDevice)

	huma.Register(s.api, huma.Operation{
		OperationID: "rollDeviceKey",
		Method:      http.MethodPost,
		Path:        "/api/v1/devices/{id}/roll",
		Summary:     "Roll device key",
		Description: "Replaces the device key with a fresh one, invalidating the old key immediately",
		Tags:        []string{"Devices"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRollDeviceKey)
}

// === DTOs ===

// DeviceResponse contains device data in API responses.
type DeviceResponse struct {
	ID         string     `json:"id" doc:"Device ID"`
	Name       string     `json:"name" doc:"Device name"`
	Platform   string     `json:"platform,omitempty" doc:"Device platform"`
	KeyPrefix  string     `json:"key_prefix" doc:"First characters of the key, for display"`
	CreatedAt  time.Time  `json:"created_at" doc:"Registration time"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" doc:"Last successful authentication"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty" doc:"Revocation time, if revoked"`
}

// DeviceKeyResponse pairs a device with its raw key, returned only at
// registration and key roll.
type DeviceKeyResponse struct {
	Device DeviceResponse `json:"device"`
	Key    string         `json:"key" doc:"Raw device key. Shown exactly once; store it now."`
}

// RegisterDeviceInput wraps the device registration request for Huma.
type RegisterDeviceInput struct {
	Authorization string `header:"Authorization"`
	Body          service.RegisterDeviceRequest
}

// DeviceKeyOutput wraps the device-with-key response for Huma.
type DeviceKeyOutput struct {
	Body DeviceKeyResponse
}

// DeviceOutput wraps a single device response for Huma.
type DeviceOutput struct {
	Body DeviceResponse
}

// ListDevicesOutput wraps the device list for Huma.
type ListDevicesOutput struct {
	Body struct {
		Devices []DeviceResponse `json:"devices" doc:"Registered devices"`
	}
}

func toDeviceResponse(d *domain.Device) DeviceResponse {
	return DeviceResponse{
		ID:         d.ID,
		Name:       d.Name,
		Platform:   d.Platform,
		KeyPrefix:  d.KeyPrefix,
		CreatedAt:  d.CreatedAt,
		LastUsedAt: d.LastUsedAt,
		RevokedAt:  d.RevokedAt,
	}
}

// === Handlers ===

func (s *Server) handleRegisterDevice(ctx context.Context, input *RegisterDeviceInput) (*DeviceKeyOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	resp, err := s.services.Device.Register(ctx, identity.UserID, input.Body)
	if err != nil {
		return nil, err
	}
	return &DeviceKeyOutput{Body: DeviceKeyResponse{
		Device: toDeviceResponse(resp.Device),
		Key:    resp.Key,
	}}, nil
}

func (s *Server) handleListDevices(ctx context.Context, input *authOnly) (*ListDevicesOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	devices, err := s.services.Device.List(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	out := &ListDevicesOutput{}
	out.Body.Devices = make([]DeviceResponse, len(devices))
	for i, d := range devices {
		out.Body.Devices[i] = toDeviceResponse(d)
	}
	return out, nil
}

func (s *Server) handleGetDevice(ctx context.Context, input *authWithID) (*DeviceOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	device, err := s.services.Device.Get(ctx, identity.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	return &DeviceOutput{Body: toDeviceResponse(device)}, nil
}

func (s *Server) handleRevokeDevice(ctx context.Context, input *authWithID) (*DeviceOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	device, err := s.services.Device.Revoke(ctx, identity.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	return &DeviceOutput{Body: toDeviceResponse(device)}, nil
}

func (s *Server) handleRollDeviceKey(ctx context.Context, input *authWithID) (*DeviceKeyOutput, error) {
	identity, err := s.requireSession(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	resp, err := s.services.Device.RollKey(ctx, identity.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	return &DeviceKeyOutput{Body: DeviceKeyResponse{
		Device: toDeviceResponse(resp.Device),
		Key:    resp.Key,
	}}, nil
}
