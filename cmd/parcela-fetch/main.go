package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bionicotaku/lingo-utils-portalx"
	"go.uber.org/zap"
)

// terminalNavigator is the redirect adapter for a CLI: there is no login
// surface to navigate to, so it just tells the operator what happened.
type terminalNavigator struct{}

func (terminalNavigator) CurrentPath() string { return "" }

func (terminalNavigator) NavigateToLogin() {
	fmt.Fprintln(os.Stderr, "sessão expirada; autentique-se novamente com um token válido")
}

func main() {
	boletoID := flag.String("boleto", "", "boleto identifier (required)")
	parcelaID := flag.String("parcela", "1", "parcela identifier within the boleto")
	token := flag.String("token", os.Getenv("PORTAL_TOKEN"), "bearer token; overrides the persisted session (env PORTAL_TOKEN)")
	statePath := flag.String("state", "", "session state file (default: user config dir)")
	refresh := flag.Bool("refresh", false, "bypass the freshness cache and go to the network")
	flag.Parse()

	if *boletoID == "" {
		flag.Usage()
		log.Fatal("boleto is required")
	}

	cfg, err := portalx.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	path := *statePath
	if path == "" {
		path, err = portalx.DefaultStoragePath()
		if err != nil {
			log.Fatalf("resolve state path: %v", err)
		}
	}
	storage, err := portalx.NewFileStorage(path)
	if err != nil {
		log.Fatalf("open state file: %v", err)
	}

	store := portalx.NewSessionStore(storage, portalx.WithSessionLogger(logger))
	if *token != "" {
		profile := portalx.UserProfile{ID: "cli", Name: "CLI Session", Email: "cli@portalx.local"}
		if err := store.Save(*token, profile); err != nil {
			log.Fatalf("persist session: %v", err)
		}
	}

	client, err := portalx.NewClient(cfg, store,
		portalx.WithNavigator(terminalNavigator{}),
		portalx.WithClientLogger(logger))
	if err != nil {
		log.Fatalf("create client: %v", err)
	}

	fetcher := portalx.NewParcelaFetcher(client, nil, portalx.WithFetcherLogger(logger))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	var record *portalx.InstallmentRecord
	if *refresh {
		record, err = fetcher.Refetch(ctx, *boletoID, *parcelaID)
	} else {
		record, err = fetcher.Fetch(ctx, *boletoID, *parcelaID)
	}
	if err != nil {
		log.Fatalf("fetch parcela: %v", err)
	}

	printRecord(*boletoID, *parcelaID, record)
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func printRecord(boletoID, parcelaID string, record *portalx.InstallmentRecord) {
	status := portalx.Classify(record.StatusLabel(), record.DataPagamento, record.DataVencimento)

	fmt.Printf("== Parcela %s/%s ==\n", boletoID, parcelaID)
	if record.NumNF != "" {
		fmt.Printf("nota fiscal : %s\n", record.NumNF)
	}
	if record.NumeroParcela != 0 {
		fmt.Printf("parcela     : %d\n", record.NumeroParcela)
	}
	fmt.Printf("valor       : %s\n", record.Valor.StringFixed(2))
	fmt.Printf("vencimento  : %s\n", portalx.DisplayDueDate(record.DataVencimento))
	fmt.Printf("situação    : %s (%s)\n", status.Label, status.Category)
	if status.Category == portalx.CategoryNormal && record.StatusLabel() != "" {
		fmt.Printf("pagamento   : %s\n", portalx.PaymentDateLabel(record.DataPagamento))
	}
}
