package prober

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"PulseWatch/internal/backend/models"
	"PulseWatch/pkg/validator"
)

// TargetValidator проверка цели перед запросом
type TargetValidator interface {
	Validate(ctx context.Context, target string) validator.Verdict
}

type Config struct {
	DefaultTimeout time.Duration
	MaxBodyBytes   int64
	UserAgent      string
	// Проверка IP в момент соединения
	DialGuard bool
}

// Prober выполняет одну HTTP проверку монитора
type Prober struct {
	cfg       Config
	validator TargetValidator
	transport http.RoundTripper
	logger    *slog.Logger
	now       func() time.Time
}

func New(cfg Config, v TargetValidator, logger *slog.Logger) *Prober {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 * 1024
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "PulseWatch/1.0"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Prober{
		cfg:       cfg,
		validator: v,
		transport: newTransport(cfg.DialGuard),
		logger:    logger,
		now:       time.Now,
	}
}

// Timeout возвращает таймаут проверки: переопределение из assertions
// действует только при включенных assertions
func (p *Prober) Timeout(m *models.Monitor) time.Duration {
	if m.Assertions.Enabled && m.Assertions.TimeoutMs > 0 {
		return time.Duration(m.Assertions.TimeoutMs) * time.Millisecond
	}
	return p.cfg.DefaultTimeout
}

// Probe выполняет проверку. Ошибки цели возвращаются как неуспешная проверка,
// а не как error. Отмена ctx прерывает запрос.
func (p *Prober) Probe(ctx context.Context, m *models.Monitor) *models.Check {
	startedAt := p.now()
	elapsed := func() int64 { return p.now().Sub(startedAt).Milliseconds() }

	verdict := p.validator.Validate(ctx, m.URL)
	if !verdict.Allowed {
		if verdict.Reason.Transient() {
			return models.NewFailedCheck(m.ID, startedAt, elapsed(), models.ErrorDNS,
				fmt.Sprintf("failed to resolve %s", verdict.Host))
		}
		return models.NewFailedCheck(m.ID, startedAt, elapsed(), models.ErrorTargetBlocked,
			fmt.Sprintf("target blocked: %s", verdict.Reason))
	}

	checkRules, err := compileRules(m.Assertions)
	if err != nil {
		// Без своих правил проверка стала бы мягче настроенной
		p.logger.Error("invalid stored assertion config",
			"monitor_id", m.ID,
			"error", err,
		)
		return models.NewFailedCheck(m.ID, startedAt, elapsed(), models.ErrorInternal,
			fmt.Sprintf("invalid assertion config: %v", err))
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout(m))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.URL, nil)
	if err != nil {
		return models.NewFailedCheck(m.ID, startedAt, elapsed(), models.ErrorRequest,
			fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Cache-Control", "no-cache")

	client := &http.Client{
		Transport:     p.transport,
		CheckRedirect: p.redirectPolicy(m.Assertions),
	}

	resp, err := client.Do(req)
	responseMs := elapsed()
	if err != nil {
		code := classifyTransportError(err)
		return models.NewFailedCheck(m.ID, startedAt, responseMs, code, transportMessage(code, err))
	}
	defer func() {
		// Дочитываем ограниченный хвост, чтобы соединение вернулось в пул
		io.Copy(io.Discard, io.LimitReader(resp.Body, p.cfg.MaxBodyBytes))
		resp.Body.Close()
	}()

	failures := checkRules.evaluate(resp, p.cfg.MaxBodyBytes)
	if len(failures) == 0 {
		return models.NewSuccessCheck(m.ID, startedAt, responseMs, resp.StatusCode)
	}

	primary := primaryFailure(failures)
	check := models.NewFailedCheck(m.ID, startedAt, responseMs, primary.code, joinFailures(failures))
	statusCode := resp.StatusCode
	check.StatusCode = &statusCode
	return check
}

// redirectPolicy без включенного follow_redirects редиректы не выполняются,
// иначе не больше MaxRedirects переходов, каждый с проверкой цели
func (p *Prober) redirectPolicy(cfg models.AssertionConfig) func(*http.Request, []*http.Request) error {
	if !cfg.Enabled || !cfg.FollowRedirects {
		return func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return func(req *http.Request, via []*http.Request) error {
		if len(via) > cfg.MaxRedirects {
			return errRedirectLimit
		}

		verdict := p.validator.Validate(req.Context(), req.URL.String())
		if !verdict.Allowed && !verdict.Reason.Transient() {
			return &redirectBlockedError{location: req.URL.String(), reason: verdict.Reason}
		}
		return nil
	}
}

func transportMessage(code models.ErrorCode, err error) string {
	// Убираем "Get \"url\":" из текста ошибки
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return fmt.Sprintf("%s: %v", code, err)
}
