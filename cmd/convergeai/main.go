package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/converge-ai/convergeai/agent"
	agentbooking "github.com/converge-ai/convergeai/agent/booking"
	"github.com/converge-ai/convergeai/agent/complaint"
	"github.com/converge-ai/convergeai/agent/discovery"
	"github.com/converge-ai/convergeai/agent/policyagent"
	"github.com/converge-ai/convergeai/coordinator"
	"github.com/converge-ai/convergeai/external/address"
	"github.com/converge-ai/convergeai/external/embedding"
	"github.com/converge-ai/convergeai/external/llm"
	"github.com/converge-ai/convergeai/external/vectorstore"
	"github.com/converge-ai/convergeai/httpapi"
	"github.com/converge-ai/convergeai/internal/audit"
	"github.com/converge-ai/convergeai/internal/config"
	"github.com/converge-ai/convergeai/intent"
	"github.com/converge-ai/convergeai/metrics"
	opsalert "github.com/converge-ai/convergeai/ops/alert"
	"github.com/converge-ai/convergeai/policy"
	"github.com/converge-ai/convergeai/retrieval"
	"github.com/converge-ai/convergeai/session"
	"github.com/converge-ai/convergeai/store"
	"github.com/converge-ai/convergeai/store/cache"
	"github.com/converge-ai/convergeai/store/postgres"
)

var rootCmd = &cobra.Command{
	Use:   "convergeai",
	Short: "ConvergeAI: a multi-agent customer-service platform for a home-services marketplace.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		return nil
	},
	RunE: run,
}

func init() {
	viper.SetDefault("driver", "postgres")

	rootCmd.PersistentFlags().String("mode", "dev", `"dev" or "prod"`)
	rootCmd.PersistentFlags().String("dsn", "", "postgres DSN")
	rootCmd.PersistentFlags().String("policy-config", "./config/policy.yaml", "path to the policy tables YAML")
	rootCmd.PersistentFlags().String("runtime-config", "./config/runtime.yaml", "path to the hot-reloadable runtime config YAML")
	rootCmd.PersistentFlags().String("http-addr", ":8080", "address the HTTP API listens on")

	for _, f := range []string{"mode", "dsn", "policy-config", "runtime-config", "http-addr"} {
		if err := viper.BindPFlag(f, rootCmd.PersistentFlags().Lookup(f)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("convergeai")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("convergeai: fatal", "error", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	profile := &config.Profile{Mode: viper.GetString("mode"), DSN: viper.GetString("dsn")}
	profile.FromEnv()
	if p := viper.GetString("policy-config"); p != "" {
		profile.PolicyConfigPath = p
	}
	if err := profile.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Open(profile.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	catalogCache := cache.NewCatalogCache(1024, 0)
	st := store.New(db, catalogCache)
	defer st.Close()

	auditWriter := audit.NewWriter(db, nil)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	policyTables, err := policy.Load(profile.PolicyConfigPath)
	if err != nil {
		slog.Warn("convergeai: failed to load policy config, using defaults", "error", err)
		policyTables = policy.Default()
	}

	runtimeLoader := config.NewLoader(viper.GetString("runtime-config"), nil)
	runtimeLoader.Start(ctx)
	defer runtimeLoader.Stop()

	llmClient, err := llm.New(llm.Config{
		APIKey:  profile.LLMAPIKey,
		BaseURL: profile.LLMBaseURL,
		Model:   profile.LLMModel,
	})
	if err != nil {
		return err
	}
	embeddingClient, err := embedding.New(embedding.Config{
		APIKey:  profile.EmbeddingAPIKey,
		BaseURL: profile.EmbeddingBaseURL,
		Model:   profile.EmbeddingModel,
	})
	if err != nil {
		return err
	}
	vectorStore := vectorstore.New(db.SQLDB(), "policy_chunks")
	retrievalEngine := retrieval.New(embeddingClient, vectorStore)

	addressClient := address.New(address.Config{
		BaseURL: profile.AddressServiceURL,
		APIKey:  profile.AddressServiceAPIKey,
	})

	sessions := session.New(st)
	classifier := intent.New()
	exporter := metrics.New()

	bookingAgent := &agentbooking.Agent{
		Store:     st,
		Catalog:   st.Driver,
		Bookings:  st.Driver,
		Addresses: addressClient,
		Policy:    policyTables,
	}
	complaintAgent := &complaint.Agent{Complaints: st.Driver, Policy: policyTables}
	discoveryAgent := &discovery.Agent{Store: st}
	policyAgentHandler := &policyagent.Agent{Retrieval: retrievalEngine, LLM: llmClient, Metrics: exporter}

	dispatch := agent.NewDispatchTable(bookingAgent, complaintAgent, discoveryAgent, policyAgentHandler)

	coord := &coordinator.Coordinator{
		Sessions:   sessions,
		Classifier: classifier,
		Dispatch:   dispatch,
		Metrics:    exporter,
		Feedback:   &intent.FeedbackRecorder{Repo: st.Driver},
	}

	var rdb *redis.Client
	if profile.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: profile.RedisAddr})
	}

	var notifier opsalert.Notifier
	if profile.SlackBotToken != "" {
		notifier = opsalert.NewSlackNotifier(profile.SlackBotToken, profile.SlackOpsChannel)
	}

	alertEngine := &opsalert.Engine{
		Complaints: st.Driver,
		Bookings:   st.Driver,
		Alerts:     st.Driver,
		Dedup:      opsalert.NewDeduplicator(rdb, st.Driver),
		Notifier:   notifier,
		Policy:     policyTables,
		Metrics:    exporter,
	}
	alertEngine.Start(ctx)
	defer alertEngine.Stop()

	api := httpapi.New(viper.GetString("http-addr"), coord, alertEngine, exporter)
	api.Start()

	slog.Info("convergeai: started", "mode", profile.Mode, "http_addr", viper.GetString("http-addr"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("convergeai: shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		slog.Warn("convergeai: http server shutdown error", "error", err)
	}
	return nil
}
