package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alejandrodnm/flowscan/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultTwilioURL = "https://api.twilio.com/2010-04-01"

	// Dos segmentos SMS; Twilio acepta más pero cada segmento se cobra.
	maxSMSLength = 320

	// Twilio limita a ~1 msg/s por número de origen.
	defaultSMSPerSec = 1.0
)

// SMSConfig contiene las credenciales y destinos de Twilio.
type SMSConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
	To         []string
	RatePerSec float64 // 0 = 1 msg/s
	Timeout    time.Duration
}

// SMS implementa ports.Notifier enviando mensajes vía la REST API de Twilio.
// No reintenta: un fallo se devuelve al scanner, que lo registra y sigue.
type SMS struct {
	http    *http.Client
	cfg     SMSConfig
	limiter *rate.Limiter
}

// NewSMS valida la configuración y crea el notificador.
func NewSMS(cfg SMSConfig) (*SMS, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("notify.NewSMS: missing Twilio account SID or auth token")
	}
	if cfg.From == "" || len(cfg.To) == 0 {
		return nil, errors.New("notify.NewSMS: from and at least one recipient are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultTwilioURL
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultSMSPerSec
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMS{
		http:    &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
	}, nil
}

// Notify envía el mensaje a cada destinatario. Devuelve los errores de todos
// los envíos fallidos; los demás destinatarios se intentan igualmente.
func (s *SMS) Notify(ctx context.Context, message string, sig domain.Signal) error {
	body := truncate(message, maxSMSLength)
	var errs []error
	for _, to := range s.cfg.To {
		if err := s.send(ctx, to, body); err != nil {
			errs = append(errs, fmt.Errorf("notify.SMS: %s to %s: %w", sig.Symbol, to, err))
			continue
		}
		slog.Debug("sms sent", "to", to, "symbol", sig.Symbol)
	}
	return errors.Join(errs...)
}

// twilioError es el cuerpo de error de la API de Twilio.
type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *SMS) send(ctx context.Context, to, body string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	form := url.Values{}
	form.Set("From", s.cfg.From)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.cfg.BaseURL, url.PathEscape(s.cfg.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var te twilioError
		if json.Unmarshal(raw, &te) == nil && te.Message != "" {
			return fmt.Errorf("HTTP %d: twilio %d: %s", resp.StatusCode, te.Code, te.Message)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
