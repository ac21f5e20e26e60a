// Package devicelink habla HTTP con los dispensadores en la LAN.
package devicelink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pharmabot/internal/domain/devices"
	"pharmabot/internal/platform/httpclient"
)

type Notifier struct {
	client *httpclient.Client
}

func NewNotifier(timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = httpclient.DefaultTimeout
	}
	return &Notifier{client: &httpclient.Client{HTTP: &http.Client{Timeout: timeout}}}
}

// NewNotifierWithClient permite inyectar un cliente ya configurado.
func NewNotifierWithClient(c *httpclient.Client) *Notifier {
	return &Notifier{client: c}
}

var _ devices.Notifier = (*Notifier)(nil)

// Send hace POST http://{address}{path}. Un status no-2xx se devuelve como
// devices.ErrDeviceRejected y una falla sin respuesta como devices.ErrTransport.
// Un 2xx con body no JSON (p.ej. "OK") es éxito y el body va en "raw".
func (n *Notifier) Send(ctx context.Context, address, path string, payload any) (map[string]any, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.New("devicelink: empty address")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	url := address
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	url = strings.TrimRight(url, "/") + path

	out := map[string]any{}
	err := n.client.PostJSON(ctx, url, payload, &out)

	var (
		he *httpclient.HTTPError
		de *httpclient.DecodeError
	)
	switch {
	case err == nil:
		return out, nil
	case errors.As(err, &he):
		return nil, fmt.Errorf("%w: HTTP %d", devices.ErrDeviceRejected, he.StatusCode)
	case errors.As(err, &de):
		return map[string]any{"raw": de.Body}, nil
	case errors.Is(err, httpclient.ErrTransport):
		return nil, fmt.Errorf("%w: %v", devices.ErrTransport, err)
	default:
		return nil, err
	}
}
