package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/tweetsense/internal/models"
	"github.com/spacesedan/tweetsense/internal/utils"
)

const (
	ANALYSES_TABLE_NAME = "SentimentAnalyses"
	ARCHIVE_TTL         = 30 * 24 * time.Hour
	maxWriteRetries     = 3
)

var ErrArchiveClosed = errors.New("[DynamoDB] archive is closed")

type BatchWriter interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Archive buffers analyses and writes them to DynamoDB in batches from a
// background flusher.
type Archive struct {
	client   BatchWriter
	table    string
	buffer   *utils.BatchBuffer[models.Analysis]
	interval time.Duration
	backoff  time.Duration

	flushNow chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewArchive(client BatchWriter, table string) *Archive {
	if table == "" {
		table = ANALYSES_TABLE_NAME
	}
	return &Archive{
		client:   client,
		table:    table,
		buffer:   utils.NewBatchBuffer[models.Analysis](),
		interval: utils.BATCH_TIMEOUT,
		backoff:  500 * time.Millisecond,
		flushNow: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start runs the flusher until ctx is cancelled or Close is called.
func (a *Archive) Start(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				a.flush(context.Background())
				return
			case <-a.done:
				a.flush(context.Background())
				return
			case <-ticker.C:
				a.flush(ctx)
			case <-a.flushNow:
				a.flush(ctx)
			}
		}
	}()
}

// Record only buffers; writes happen on the flusher. It fails with
// ErrArchiveClosed once Close has been called.
func (a *Archive) Record(ctx context.Context, analyses []models.Analysis) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrArchiveClosed
	}

	if a.buffer.Add(analyses...) {
		select {
		case a.flushNow <- struct{}{}:
		default:
		}
	}
	return nil
}

// Close stops the flusher after a final flush.
func (a *Archive) Close() {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()
		close(a.done)
	})
	a.wg.Wait()
}

func (a *Archive) flush(ctx context.Context) {
	if !a.buffer.HasData() {
		return
	}
	batch := a.buffer.GetAndClear()
	if err := a.StoreAnalyses(ctx, batch); err != nil {
		slog.Error("[DynamoDB] Failed to archive analyses",
			slog.Int("count", len(batch)),
			slog.String("error", err.Error()))
	}
}

// StoreAnalyses writes analyses in chunks of 25, retrying unprocessed items.
func (a *Archive) StoreAnalyses(ctx context.Context, analyses []models.Analysis) error {
	expiresAt := time.Now().Add(ARCHIVE_TTL).Unix()

	for _, chunk := range utils.Chunk(analyses, utils.BATCH_SIZE) {
		writeRequests := make([]types.WriteRequest, 0, len(chunk))
		for _, analysis := range chunk {
			item, err := attributevalue.MarshalMap(analysis)
			if err != nil {
				return fmt.Errorf("[DynamoDB] Failed to marshal analysis: %w", err)
			}
			item["expires_at"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt)}
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		out, err := a.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				a.table: writeRequests,
			},
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] Failed to batch write analyses: %w", err)
		}

		retryCount := 0
		backoffDuration := a.backoff
		for len(out.UnprocessedItems) > 0 && retryCount < maxWriteRetries {
			slog.Warn("[DynamoDB] Retrying unprocessed items...",
				slog.Int("retry_attempt", retryCount+1),
				slog.Int("remaining_items", len(out.UnprocessedItems[a.table])))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffDuration):
			}
			backoffDuration *= 2

			out, err = a.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: out.UnprocessedItems,
			})
			if err != nil {
				return fmt.Errorf("[DynamoDB] Failed to retry batch write: %w", err)
			}
			retryCount++
		}

		if len(out.UnprocessedItems) > 0 {
			return fmt.Errorf("[DynamoDB] %d items were not written after retries",
				len(out.UnprocessedItems[a.table]))
		}
	}

	slog.Info("[DynamoDB] Successfully archived analyses", slog.Int("count", len(analyses)))
	return nil
}
