package clients

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spacesedan/tweetsense/internal/models"
	"github.com/valkey-io/valkey-go"
)

const (
	VALKEY_HISTORY_KEY = "tweetsense:analyses"
	VALKEY_HISTORY_TTL = 24 * time.Hour
	VALKEY_RETRIES     = 3
	VALKEY_RETRY_DELAY = 250 * time.Millisecond
)

type ValkeyOptions struct {
	Address     string
	Password    string
	UseTLS      bool
	HistorySize int
}

// ValkeyClient keeps a capped list of the most recent analyses.
type ValkeyClient struct {
	Client      valkey.Client
	opts        ValkeyOptions
	historySize int
	retryDelay  time.Duration
	mu          sync.Mutex
}

func newValkey(opts ValkeyOptions) (valkey.Client, error) {
	clientOpts := valkey.ClientOption{
		InitAddress: []string{
			opts.Address,
		},
		Password:         opts.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}

	if opts.UseTLS {
		clientOpts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}
	return client, nil
}

func NewValkeyClient(opts ValkeyOptions) (*ValkeyClient, error) {
	client, err := newValkey(opts)
	if err != nil {
		return nil, err
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey", slog.String("address", opts.Address))
	return newValkeyClientWith(client, opts), nil
}

func newValkeyClientWith(client valkey.Client, opts ValkeyOptions) *ValkeyClient {
	if opts.HistorySize < 1 {
		opts.HistorySize = 50
	}
	return &ValkeyClient{
		Client:      client,
		opts:        opts,
		historySize: opts.HistorySize,
		retryDelay:  VALKEY_RETRY_DELAY,
	}
}

func (vc *ValkeyClient) client() valkey.Client {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.Client
}

func (vc *ValkeyClient) recreateClient() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")

	client, err := newValkey(vc.opts)
	if err != nil {
		slog.Error("[ValkeyClient] Recreate failed", slog.String("error", err.Error()))
		return
	}
	vc.Client.Close()
	vc.Client = client
	slog.Info("[ValkeyClient] Successfully reconnected to valkey")
}

func (vc *ValkeyClient) Close() {
	vc.client().Close()
}

// Ping is used by the health monitor.
func (vc *ValkeyClient) Ping(ctx context.Context) error {
	c := vc.client()
	return c.Do(ctx, c.B().Ping().Build()).Error()
}

// Record pushes the analyses onto the history list, newest first, and trims it
// to the configured size.
func (vc *ValkeyClient) Record(ctx context.Context, analyses []models.Analysis) error {
	if len(analyses) == 0 {
		return nil
	}

	elements, err := encodeAnalyses(analyses)
	if err != nil {
		return err
	}

	c := vc.client()
	completed := []valkey.Completed{
		c.B().Lpush().Key(VALKEY_HISTORY_KEY).Element(elements...).Build(),
		c.B().Ltrim().Key(VALKEY_HISTORY_KEY).Start(0).Stop(int64(vc.historySize - 1)).Build(),
		c.B().Expire().Key(VALKEY_HISTORY_KEY).Seconds(int64(VALKEY_HISTORY_TTL / time.Second)).Build(),
	}

	for _, res := range vc.DoMultiWithRetry(ctx, completed, VALKEY_RETRIES) {
		if err := res.Error(); err != nil {
			return err
		}
	}

	slog.Debug("[ValkeyClient] Recorded analyses", slog.Int("count", len(analyses)))
	return nil
}

func (vc *ValkeyClient) Recent(ctx context.Context, n int) ([]models.Analysis, error) {
	if n < 1 || n > vc.historySize {
		n = vc.historySize
	}

	c := vc.client()
	res := vc.DoWithRetry(ctx, c.B().Lrange().Key(VALKEY_HISTORY_KEY).Start(0).Stop(int64(n-1)).Build(), VALKEY_RETRIES)
	if err := res.Error(); err != nil {
		if isConnectionError(err) {
			vc.recreateClient()
		}
		return nil, err
	}

	raw, err := res.AsStrSlice()
	if err != nil {
		return nil, err
	}
	return decodeAnalyses(raw), nil
}

// DoMultiWithRetry repeats the whole pipeline until every command succeeds,
// retries run out, or ctx is done.
func (vc *ValkeyClient) DoMultiWithRetry(ctx context.Context, completed []valkey.Completed, retries int) []valkey.ValkeyResult {
	var results []valkey.ValkeyResult

	for i := 0; i < retries; i++ {
		results = vc.client().DoMulti(ctx, completed...)
		hasErr := false
		for _, r := range results {
			if r.Error() != nil {
				hasErr = true
				slog.Warn("[ValkeyClient] Do Multi failed",
					slog.Int("attempt", i+1),
					slog.String("error", r.Error().Error()))
				if isConnectionError(r.Error()) {
					vc.recreateClient()
				}
				break
			}
		}
		if !hasErr || i == retries-1 {
			break
		}
		if err := vc.waitRetry(ctx); err != nil {
			break
		}
	}

	return results
}

func (vc *ValkeyClient) DoWithRetry(ctx context.Context, completed valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.client().Do(ctx, completed)
		if result.Error() == nil {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		if i == retries-1 {
			break
		}
		if err := vc.waitRetry(ctx); err != nil {
			break
		}
	}

	return result
}

func (vc *ValkeyClient) waitRetry(ctx context.Context) error {
	timer := time.NewTimer(vc.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// encodeAnalyses orders elements so that after LPUSH the last analysis of the
// batch sits at the head of the list.
func encodeAnalyses(analyses []models.Analysis) ([]string, error) {
	elements := make([]string, 0, len(analyses))
	for _, a := range analyses {
		b, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("[ValkeyClient] failed to marshal analysis: %w", err)
		}
		elements = append(elements, string(b))
	}
	return elements, nil
}

func decodeAnalyses(raw []string) []models.Analysis {
	analyses := make([]models.Analysis, 0, len(raw))
	for _, r := range raw {
		var a models.Analysis
		if err := json.Unmarshal([]byte(r), &a); err != nil {
			slog.Warn("[ValkeyClient] Skipping malformed history entry", slog.String("error", err.Error()))
			continue
		}
		analyses = append(analyses, a)
	}
	return analyses
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
