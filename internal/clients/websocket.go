package clients

import (
	"context"
	"fmt"

	ws "course-ledger/internal/transport/websocket"
)

type WebSocketClient struct {
	hub *ws.Hub
}

func NewWebSocketClient(hub *ws.Hub) *WebSocketClient {
	return &WebSocketClient{
		hub: hub,
	}
}

// NotifyPaymentRecorded pushes a payment confirmation (with any skip-ahead
// warnings) to the operator who recorded it.
func (c *WebSocketClient) NotifyPaymentRecorded(ctx context.Context, userID int64, paymentReceiptNo string, warnings []string) error {
	if c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_user_payment_recorded#%d", userID)
	data := map[string]interface{}{
		"payment_receipt_no": paymentReceiptNo,
	}
	if len(warnings) > 0 {
		data["warnings"] = warnings
	}

	c.hub.Broadcast(userID, &ws.Message{
		Type:    "payment_recorded",
		Channel: channel,
		Data:    data,
	})
	return nil
}

func (c *WebSocketClient) NotifyExportProgress(ctx context.Context, userID int64, exportID string, progress float64, stage string) error {
	if c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_user_of_progress_export#%d", userID)
	data := map[string]interface{}{
		"id":       exportID,
		"progress": progress,
	}
	if stage != "" {
		data["stage"] = stage
	}

	c.hub.Broadcast(userID, &ws.Message{
		Type:    "export_progress",
		Channel: channel,
		Data:    data,
	})
	return nil
}

func (c *WebSocketClient) NotifyExportComplete(ctx context.Context, userID int64, exportID, url, filename string) error {
	if c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_user_when_export_complete#%d", userID)
	c.hub.Broadcast(userID, &ws.Message{
		Type:    "export_complete",
		Channel: channel,
		Data: map[string]interface{}{
			"id":       exportID,
			"url":      url,
			"filename": filename,
			"user_id":  userID,
		},
	})
	return nil
}

func (c *WebSocketClient) NotifyExportFailed(ctx context.Context, userID int64, exportID, errMsg string) error {
	if c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_user_when_export_failed#%d", userID)
	c.hub.Broadcast(userID, &ws.Message{
		Type:    "export_failed",
		Channel: channel,
		Data: map[string]interface{}{
			"id":      exportID,
			"message": errMsg,
			"user_id": userID,
		},
	})
	return nil
}
