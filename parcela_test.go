package portalx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type parcelaServer struct {
	*httptest.Server
	calls   int32
	failing int32
	release chan struct{}
}

// newParcelaServer serves a fixed installment record, counting calls. When
// release is non-nil the handler blocks until it is closed, so tests can
// pile up concurrent callers. Flipping failing makes it return 500s.
func newParcelaServer(t *testing.T, release chan struct{}) *parcelaServer {
	t.Helper()
	ps := &parcelaServer{release: release}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ps.calls, 1)
		if ps.release != nil {
			<-ps.release
		}
		if atomic.LoadInt32(&ps.failing) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"indisponível"}`))
			return
		}
		_, _ = fmt.Fprint(w, `{
			"numNF": "NF-1001",
			"numeroParcela": 2,
			"valor": 1234.56,
			"dataVencimento": "2024-03-15",
			"statusPagamento": "pendente"
		}`)
	}))
	t.Cleanup(ps.Server.Close)
	return ps
}

func newTestFetcher(t *testing.T, baseURL string, store *SessionStore) *ParcelaFetcher {
	t.Helper()
	client := newTestClient(t, baseURL, store)
	return NewParcelaFetcher(client, nil)
}

func TestParcelaFetcherRequiresIdentifiers(t *testing.T) {
	server := newParcelaServer(t, nil)
	fetcher := newTestFetcher(t, server.URL, loggedInStore(t, "tok"))

	for _, pair := range [][2]string{{"", "p-1"}, {"b-1", ""}, {"", ""}, {"  ", "p-1"}} {
		_, err := fetcher.Fetch(context.Background(), pair[0], pair[1])
		var clientErr *Error
		if !errors.As(err, &clientErr) || clientErr.Code != ErrCodeMissingIdentifier {
			t.Fatalf("pair %v: unexpected error %v", pair, err)
		}
	}
	if got := atomic.LoadInt32(&server.calls); got != 0 {
		t.Fatalf("expected no network calls, got %d", got)
	}
}

func TestParcelaFetcherFailsFastWithoutSession(t *testing.T) {
	server := newParcelaServer(t, nil)
	store := NewSessionStore(NewMemoryStorage())
	fetcher := newTestFetcher(t, server.URL, store)

	_, err := fetcher.Fetch(context.Background(), "b-1", "p-1")
	var clientErr *Error
	if !errors.As(err, &clientErr) || clientErr.Code != ErrCodeUnauthenticated {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&server.calls); got != 0 {
		t.Fatalf("expected no network call when unauthenticated, got %d", got)
	}
}

func TestParcelaFetcherCachesRecord(t *testing.T) {
	server := newParcelaServer(t, nil)
	fetcher := newTestFetcher(t, server.URL, loggedInStore(t, "tok"))

	first, err := fetcher.Fetch(context.Background(), "b-1", "p-1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if first.NumNF != "NF-1001" {
		t.Fatalf("unexpected record: %+v", first)
	}
	if !first.Valor.Equal(decimal.NewFromFloat(1234.56)) {
		t.Fatalf("unexpected valor: %s", first.Valor)
	}

	second, err := fetcher.Fetch(context.Background(), "b-1", "p-1")
	if err != nil {
		t.Fatalf("Fetch cached: %v", err)
	}
	if second != first {
		t.Fatalf("expected cached record instance")
	}
	if got := atomic.LoadInt32(&server.calls); got != 1 {
		t.Fatalf("expected one network call, got %d", got)
	}
}

func TestParcelaFetcherDedupsConcurrentFetches(t *testing.T) {
	release := make(chan struct{})
	server := newParcelaServer(t, release)
	fetcher := newTestFetcher(t, server.URL, loggedInStore(t, "tok"))

	const callers = 4
	var wg sync.WaitGroup
	results := make([]*InstallmentRecord, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = fetcher.Fetch(context.Background(), "b-1", "p-1")
		}(i)
	}

	// Let every caller reach the in-flight gate before the server answers.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] == nil || results[i].NumNF != "NF-1001" {
			t.Fatalf("caller %d: unexpected record %+v", i, results[i])
		}
	}
	if got := atomic.LoadInt32(&server.calls); got != 1 {
		t.Fatalf("expected a single network call for concurrent fetches, got %d", got)
	}
}

func TestParcelaFetcherDistinctKeysFetchSeparately(t *testing.T) {
	server := newParcelaServer(t, nil)
	fetcher := newTestFetcher(t, server.URL, loggedInStore(t, "tok"))

	if _, err := fetcher.Fetch(context.Background(), "b-1", "p-1"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, err := fetcher.Fetch(context.Background(), "b-1", "p-2"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := atomic.LoadInt32(&server.calls); got != 2 {
		t.Fatalf("expected two network calls for distinct keys, got %d", got)
	}
}

func TestParcelaFetcherRefetchBypassesCache(t *testing.T) {
	server := newParcelaServer(t, nil)
	fetcher := newTestFetcher(t, server.URL, loggedInStore(t, "tok"))

	if _, err := fetcher.Fetch(context.Background(), "b-1", "p-1"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, err := fetcher.Refetch(context.Background(), "b-1", "p-1"); err != nil {
		t.Fatalf("Refetch: %v", err)
	}
	if got := atomic.LoadInt32(&server.calls); got != 2 {
		t.Fatalf("expected refetch to hit the network, got %d calls", got)
	}
}

func TestParcelaFetcherFailureKeepsCachedValue(t *testing.T) {
	server := newParcelaServer(t, nil)
	fetcher := newTestFetcher(t, server.URL, loggedInStore(t, "tok"))

	original, err := fetcher.Fetch(context.Background(), "b-1", "p-1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	atomic.StoreInt32(&server.failing, 1)
	if _, err := fetcher.Refetch(context.Background(), "b-1", "p-1"); err == nil {
		t.Fatal("expected refetch failure")
	}

	// The failed attempt must not have poisoned the cached record.
	cached, err := fetcher.Fetch(context.Background(), "b-1", "p-1")
	if err != nil {
		t.Fatalf("Fetch after failure: %v", err)
	}
	if cached != original {
		t.Fatalf("expected previously cached record, got %+v", cached)
	}
}

func TestInstallmentRecordStatusLabel(t *testing.T) {
	record := &InstallmentRecord{StatusPagamento: "pago", Status: "ativo"}
	if got := record.StatusLabel(); got != "pago" {
		t.Fatalf("expected payment status to win, got %q", got)
	}
	record = &InstallmentRecord{Status: "ativo"}
	if got := record.StatusLabel(); got != "ativo" {
		t.Fatalf("expected lifecycle status fallback, got %q", got)
	}
}
