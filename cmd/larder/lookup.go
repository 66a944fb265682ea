package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/larder/internal/category"
	"github.com/dukerupert/larder/internal/openfoodfacts"
)

var flagLang string

var lookupCmd = &cobra.Command{
	Use:     "lookup <barcode>",
	Short:   "Look a barcode up in OpenFoodFacts",
	Example: `  larder lookup 3017620422003`,
	Args:    cobra.ExactArgs(1),
	RunE:    runLookup,
}

var classifyCmd = &cobra.Command{
	Use:   "classify <text>",
	Short: "Guess the category of a product name",
	Example: `  larder classify "chicken breast"
  larder classify "сыр гауда" --lang ru`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&flagLang, "lang", "en", "Label language: en, ru or zh")
	rootCmd.AddCommand(lookupCmd, classifyCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := openfoodfacts.NewClient(cfg.OpenFoodFacts)
	p, err := client.Lookup(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("no product found for barcode %s", args[0])
	}

	out := struct {
		*openfoodfacts.Product
		Category string `json:"category"`
	}{p, string(p.Category())}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runClassify(cmd *cobra.Command, args []string) error {
	c := category.Classify(args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c, category.Label(c, category.ParseLang(flagLang)))
	return nil
}
