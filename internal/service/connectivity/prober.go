package connectivity

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// 连接状态提示文案，仅用于展示。
const (
	SummaryAllUp        = "✅ Đã kết nối đầy đủ FastAPI + Rasa"
	SummaryOnlyRestAPI  = "⚠️ Chỉ FastAPI hoạt động. Vui lòng đợi Rasa khởi động."
	SummaryOnlyDialogue = "⚠️ Chỉ Rasa hoạt động. Vui lòng khởi động FastAPI"
	SummaryAllDown      = "❌ Không kết nối được. Vui lòng khởi động servers."
)

// Status is the combined reachability of both backends.
type Status struct {
	DialogueEngineUp bool      `json:"rasa"`
	RestAPIUp        bool      `json:"fastApi"`
	Summary          string    `json:"message"`
	CheckedAt        time.Time `json:"checkedAt"`
}

// Summarize picks the fixed display message for a pair of probe results.
func Summarize(dialogueUp, restUp bool) string {
	switch {
	case dialogueUp && restUp:
		return SummaryAllUp
	case restUp:
		return SummaryOnlyRestAPI
	case dialogueUp:
		return SummaryOnlyDialogue
	default:
		return SummaryAllDown
	}
}

// Prober checks whether the dialogue engine and the REST API answer. Failures are
// reported as "down" and never returned as errors.
type Prober struct {
	dialogueURL string
	restURL     string
	httpClient  *http.Client
	timeout     time.Duration
	logger      *slog.Logger
}

// NewProber 创建探测器，timeout 限制单次探测耗时。
func NewProber(dialogueURL, restURL string, timeout time.Duration, httpClient *http.Client, logger *slog.Logger) *Prober {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		dialogueURL: dialogueURL,
		restURL:     restURL,
		httpClient:  httpClient,
		timeout:     timeout,
		logger:      logger,
	}
}

// CheckDialogueEngine probes GET {dialogueURL}/.
func (p *Prober) CheckDialogueEngine(ctx context.Context) bool {
	return p.check(ctx, "rasa", p.dialogueURL+"/")
}

// CheckRestAPI probes GET {restURL}/health.
func (p *Prober) CheckRestAPI(ctx context.Context) bool {
	return p.check(ctx, "rest", p.restURL+"/health")
}

// GetStatus runs both probes concurrently.
func (p *Prober) GetStatus(ctx context.Context) Status {
	var dialogueUp, restUp bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dialogueUp = p.CheckDialogueEngine(gctx)
		return nil
	})
	g.Go(func() error {
		restUp = p.CheckRestAPI(gctx)
		return nil
	})
	_ = g.Wait()

	return Status{
		DialogueEngineUp: dialogueUp,
		RestAPIUp:        restUp,
		Summary:          Summarize(dialogueUp, restUp),
		CheckedAt:        time.Now().UTC(),
	}
}

func (p *Prober) check(ctx context.Context, name, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		p.logger.Warn("probe request invalid", "backend", name, "error", err)
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Debug("probe failed", "backend", name, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
