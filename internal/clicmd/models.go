package clicmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"chronicle/internal/llm"
	"chronicle/internal/llm/anthropic"
	"chronicle/internal/llm/openai"
	"chronicle/internal/model"
	"chronicle/internal/observability"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// modelTestTimeout is the model-connectivity-test deadline (spec §5: "15 s
// model-test deadline").
const modelTestTimeout = 15 * time.Second

var modelsCmd = &cobra.Command{
	Use:     "models",
	GroupID: GroupModels,
	Short:   "Manage configured LLM provider/model rows",
}

var (
	modelName             string
	modelProvider         string
	modelAPIURL           string
	modelID2              string
	modelAPIKey           string
	modelInputTokenPrice  float64
	modelOutputTokenPrice float64
	modelCurrency         string
)

var modelsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new provider/model row",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		_, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		m := model.LLMModel{
			ID:               uuid.NewString(),
			Name:             modelName,
			Provider:         modelProvider,
			APIURL:           modelAPIURL,
			Model:            modelID2,
			APIKey:           modelAPIKey,
			InputTokenPrice:  modelInputTokenPrice,
			OutputTokenPrice: modelOutputTokenPrice,
			Currency:         modelCurrency,
			CreatedAt:        time.Now().UTC(),
			UpdatedAt:        time.Now().UTC(),
		}
		if err := store.CreateModel(m); err != nil {
			return fmt.Errorf("create model: %w", err)
		}
		fmt.Println(m.ID)
		return nil
	},
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every configured model row",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		_, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		models, err := store.ListModels()
		if err != nil {
			return fmt.Errorf("list models: %w", err)
		}
		return printJSON(models)
	},
}

var modelsGetActiveCmd = &cobra.Command{
	Use:   "get-active",
	Short: "Print the currently active model row",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		_, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		active, err := store.GetActiveModel()
		if err != nil {
			return fmt.Errorf("get active model: %w", err)
		}
		return printJSON(active.Sanitized())
	},
}

var modelsSelectCmd = &cobra.Command{
	Use:   "select <id>",
	Short: "Mark a model row as active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		_, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		return store.SetActiveModel(args[0])
	},
}

var modelsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an existing model row",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		_, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		existing, err := store.GetModel(args[0])
		if err != nil {
			return fmt.Errorf("load model: %w", err)
		}
		if cmd.Flags().Changed("name") {
			existing.Name = modelName
		}
		if cmd.Flags().Changed("provider") {
			existing.Provider = modelProvider
		}
		if cmd.Flags().Changed("api-url") {
			existing.APIURL = modelAPIURL
		}
		if cmd.Flags().Changed("model") {
			existing.Model = modelID2
		}
		if cmd.Flags().Changed("api-key") {
			existing.APIKey = modelAPIKey
		}
		if cmd.Flags().Changed("input-token-price") {
			existing.InputTokenPrice = modelInputTokenPrice
		}
		if cmd.Flags().Changed("output-token-price") {
			existing.OutputTokenPrice = modelOutputTokenPrice
		}
		if cmd.Flags().Changed("currency") {
			existing.Currency = modelCurrency
		}
		existing.UpdatedAt = time.Now().UTC()
		return store.UpdateModel(existing)
	},
}

var modelsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a model row",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		_, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		return store.DeleteModel(args[0])
	},
}

var modelsTestCmd = &cobra.Command{
	Use:   "test <id>",
	Short: "Send a one-off completion to verify a model row's credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		_, store, _, err := openStores(path)
		if err != nil {
			return err
		}
		defer store.Close()

		m, err := store.GetModel(args[0])
		if err != nil {
			return fmt.Errorf("load model: %w", err)
		}

		httpClient := observability.NewHTTPClient(&http.Client{Timeout: modelTestTimeout})
		var provider llm.Provider
		switch m.Provider {
		case "openai":
			provider = openai.New(m, httpClient)
		case "anthropic":
			provider = anthropic.New(m, httpClient)
		default:
			return fmt.Errorf("unknown provider %q", m.Provider)
		}

		ctx, cancel := context.WithTimeout(context.Background(), modelTestTimeout)
		defer cancel()

		_, testErr := provider.ChatCompletion(ctx, m.Model, []llm.Message{
			{Role: "user", Content: "ping"},
		})
		status, errMsg := "ok", ""
		if testErr != nil {
			status, errMsg = "error", testErr.Error()
		}
		if err := store.RecordModelTest(m.ID, status, errMsg, time.Now().UTC()); err != nil {
			return fmt.Errorf("record model test: %w", err)
		}
		if testErr != nil {
			return fmt.Errorf("model test failed: %w", testErr)
		}
		fmt.Println("ok")
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(rootCmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	modelsCreateCmd.Flags().StringVar(&modelName, "name", "", "display name")
	modelsCreateCmd.Flags().StringVar(&modelProvider, "provider", "", "\"openai\" or \"anthropic\"")
	modelsCreateCmd.Flags().StringVar(&modelAPIURL, "api-url", "", "provider API base URL")
	modelsCreateCmd.Flags().StringVar(&modelID2, "model", "", "provider's model identifier")
	modelsCreateCmd.Flags().StringVar(&modelAPIKey, "api-key", "", "provider API key")
	modelsCreateCmd.Flags().Float64Var(&modelInputTokenPrice, "input-token-price", 0, "price per 1M input tokens")
	modelsCreateCmd.Flags().Float64Var(&modelOutputTokenPrice, "output-token-price", 0, "price per 1M output tokens")
	modelsCreateCmd.Flags().StringVar(&modelCurrency, "currency", "USD", "price currency")

	modelsUpdateCmd.Flags().StringVar(&modelName, "name", "", "display name")
	modelsUpdateCmd.Flags().StringVar(&modelProvider, "provider", "", "\"openai\" or \"anthropic\"")
	modelsUpdateCmd.Flags().StringVar(&modelAPIURL, "api-url", "", "provider API base URL")
	modelsUpdateCmd.Flags().StringVar(&modelID2, "model", "", "provider's model identifier")
	modelsUpdateCmd.Flags().StringVar(&modelAPIKey, "api-key", "", "provider API key")
	modelsUpdateCmd.Flags().Float64Var(&modelInputTokenPrice, "input-token-price", 0, "price per 1M input tokens")
	modelsUpdateCmd.Flags().Float64Var(&modelOutputTokenPrice, "output-token-price", 0, "price per 1M output tokens")
	modelsUpdateCmd.Flags().StringVar(&modelCurrency, "currency", "", "price currency")

	modelsCmd.AddCommand(modelsCreateCmd, modelsListCmd, modelsGetActiveCmd, modelsSelectCmd, modelsUpdateCmd, modelsDeleteCmd, modelsTestCmd)
	rootCmd.AddCommand(modelsCmd)
}
