package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// Android channel per audience; the mobile apps subscribe to these ids.
const (
	CanalVendedor  = "vendedor_channel"
	CanalCliente   = "cliente_channel"
	CanalBodeguero = "bodeguero_channel"
	CanalContador  = "contador_channel"
	CanalTest      = "test_channel"
)

// Sender wraps the FCM client with the per-platform formatting the apps
// expect (Android channel + priority, APNS sound/badge).
type Sender struct {
	client *messaging.Client
	logger *zap.Logger
}

func NewSender(client *messaging.Client, logger *zap.Logger) *Sender {
	return &Sender{client: client, logger: logger}
}

// Enviar sends one push message and returns the provider message id.
func (s *Sender) Enviar(ctx context.Context, token, titulo, cuerpo, canal string, data map[string]interface{}) (string, error) {
	badge := 1

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: titulo,
			Body:  cuerpo,
		},
		Data: formatData(data),
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID:             canal,
				Sound:                 "default",
				DefaultSound:          true,
				DefaultVibrateTimings: true,
				DefaultLightSettings:  true,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:            "default",
					Badge:            &badge,
					ContentAvailable: true,
				},
			},
		},
	}

	id, err := s.client.Send(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("enviar push: %w", err)
	}
	s.logger.Debug("push enviado", zap.String("canal", canal), zap.String("messageId", id))
	return id, nil
}

// formatData flattens the free-form payload into the string map FCM
// requires, JSON-encoding nested values, and adds the click_action the
// apps use for routing.
func formatData(data map[string]interface{}) map[string]string {
	out := make(map[string]string, len(data)+1)
	for k, v := range data {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			encoded, err := json.Marshal(val)
			if err != nil {
				out[k] = fmt.Sprintf("%v", val)
				continue
			}
			out[k] = string(encoded)
		}
	}
	out["click_action"] = "FLUTTER_NOTIFICATION_CLICK"
	return out
}
