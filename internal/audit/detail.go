package audit

import (
	"context"

	"intake/internal/platform/middleware"
)

// DetailWithClient folds the request's client metadata into an event detail
// map. Events emitted outside an HTTP request pass through unchanged.
func DetailWithClient(ctx context.Context, detail map[string]string) map[string]string {
	info := middleware.GetClientInfo(ctx)
	if info.IP == "" && info.Device == "" {
		return detail
	}
	if detail == nil {
		detail = make(map[string]string, 2)
	}
	if info.IP != "" {
		detail["client_ip"] = info.IP
	}
	if info.Device != "" {
		detail["device"] = info.Device
	}
	return detail
}
