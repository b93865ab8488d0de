package portalx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// InstallmentRecord is one parcela of a boleto as returned by the portal.
// Only the fields the classification and cache logic depend on are declared;
// the rest of the payload is not validated here.
type InstallmentRecord struct {
	NumNF           string          `json:"numNF,omitempty"`
	NumeroParcela   int             `json:"numeroParcela,omitempty"`
	Valor           decimal.Decimal `json:"valor"`
	DataVencimento  string          `json:"dataVencimento"`
	DataPagamento   string          `json:"dataPagamento,omitempty"`
	StatusPagamento string          `json:"statusPagamento,omitempty"`
	Status          string          `json:"status,omitempty"`
}

// StatusLabel returns the raw status to classify: the payment status when
// present, otherwise the lifecycle status.
func (r *InstallmentRecord) StatusLabel() string {
	if r.StatusPagamento != "" {
		return r.StatusPagamento
	}
	return r.Status
}

// GetParcela fetches the installment record for a boleto.
func (c *Client) GetParcela(ctx context.Context, boletoID string) (*InstallmentRecord, error) {
	data, err := c.Get(ctx, "/external/Parcelas/"+url.PathEscape(boletoID))
	if err != nil {
		return nil, err
	}
	var record InstallmentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, newError(ErrCodeBadResponse, err)
	}
	return &record, nil
}

// ParcelaFetcher serves installment records to independent consumers,
// deduplicating concurrent fetches of the same (boleto, parcela) pair and
// keeping results fresh in a TTL cache.
type ParcelaFetcher struct {
	client *Client
	cache  *FreshCache[*InstallmentRecord]
	group  singleflight.Group
	logger *zap.Logger
}

// ParcelaFetcherOption customizes a ParcelaFetcher.
type ParcelaFetcherOption func(*ParcelaFetcher)

// WithFetcherLogger sets the logger for fetch outcomes.
func WithFetcherLogger(logger *zap.Logger) ParcelaFetcherOption {
	return func(f *ParcelaFetcher) {
		f.logger = logger
	}
}

// NewParcelaFetcher wires the client to a freshness cache. A nil cache gets
// a default one with the client's configured TTL.
func NewParcelaFetcher(client *Client, cache *FreshCache[*InstallmentRecord], opts ...ParcelaFetcherOption) *ParcelaFetcher {
	if cache == nil {
		cache = NewFreshCache[*InstallmentRecord](client.cfg.CacheTTL)
	}
	fetcher := &ParcelaFetcher{
		client: client,
		cache:  cache,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

// Fetch returns the installment record for the pair, serving it from the
// cache while fresh. On a miss at most one network call per key is in flight
// at a time; concurrent callers share that call's outcome.
func (f *ParcelaFetcher) Fetch(ctx context.Context, boletoID, parcelaID string) (*InstallmentRecord, error) {
	key, err := f.recordKey(boletoID, parcelaID)
	if err != nil {
		return nil, err
	}
	if record, ok := f.cache.Get(key); ok {
		return record, nil
	}
	return f.fetch(ctx, key, boletoID)
}

// Refetch always goes to the network, bypassing any cached value so a manual
// refresh can override staleness. It still deduplicates in-flight calls and
// repopulates the cache on success.
func (f *ParcelaFetcher) Refetch(ctx context.Context, boletoID, parcelaID string) (*InstallmentRecord, error) {
	key, err := f.recordKey(boletoID, parcelaID)
	if err != nil {
		return nil, err
	}
	return f.fetch(ctx, key, boletoID)
}

func (f *ParcelaFetcher) recordKey(boletoID, parcelaID string) (string, error) {
	if strings.TrimSpace(boletoID) == "" || strings.TrimSpace(parcelaID) == "" {
		return "", newError(ErrCodeMissingIdentifier, nil)
	}
	return CacheKey(boletoID, parcelaID), nil
}

func (f *ParcelaFetcher) fetch(ctx context.Context, key, boletoID string) (*InstallmentRecord, error) {
	// Fail fast with no session: the server would reject the call anyway and
	// the 401 side effects should not fire for a known-logged-out state.
	if !f.client.Authenticated() {
		return nil, newError(ErrCodeUnauthenticated, errors.New("no session token"))
	}

	value, err, shared := f.group.Do(key, func() (any, error) {
		record, err := f.client.GetParcela(ctx, boletoID)
		if err != nil {
			// A failed attempt must not poison a previously cached value.
			return nil, err
		}
		f.cache.Put(key, record)
		return record, nil
	})
	if err != nil {
		f.logger.Warn("parcela fetch failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	if shared {
		f.logger.Debug("parcela fetch deduplicated", zap.String("key", key))
	}
	record, ok := value.(*InstallmentRecord)
	if !ok {
		return nil, newError(ErrCodeInternal, fmt.Errorf("unexpected cache value %T", value))
	}
	return record, nil
}
