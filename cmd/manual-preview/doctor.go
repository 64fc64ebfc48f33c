// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/manual-preview/internal/imagetool"
	"github.com/pdiddy/manual-preview/internal/manual"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the converter, manual directory, and catalog",
	Long: `Doctor reports which ImageMagick binary would be used, how many PDF
manuals are visible in the manual directory, and whether the catalog
database is reachable. It exits non-zero when any check fails.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
)

func check(w io.Writer, name string, err error, detail string) bool {
	if err != nil {
		fmt.Fprintf(w, "%s %-10s %v\n", failMark("✗"), name, err)
		return false
	}
	fmt.Fprintf(w, "%s %-10s %s\n", okMark("✓"), name, detail)
	return true
}

func runDoctor(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	healthy := true

	tool, err := imagetool.Detect(appConfig.Render.ToolPaths...)
	detail := ""
	if err == nil {
		detail = tool.Path()
	}
	healthy = check(w, "converter", err, detail) && healthy

	lib, err := manual.NewLibrary(appConfig.Manuals.Dir)
	var names []string
	if err == nil {
		names, err = lib.Manuals()
	}
	if err == nil {
		detail = fmt.Sprintf("%s (%d manuals)", lib.Dir(), len(names))
	}
	healthy = check(w, "manuals", err, detail) && healthy

	healthy = checkCatalog(cmd.Context(), w) && healthy

	fmt.Fprintf(w, "  %-10s %d configured\n", "sponsored", len(sponsoredIDs))

	if !healthy {
		return fmt.Errorf("one or more checks failed")
	}
	return nil
}

func checkCatalog(ctx context.Context, w io.Writer) bool {
	store, err := openCatalog()
	if err != nil {
		return check(w, "catalog", err, "")
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = store.Ping(ctx)
	return check(w, "catalog", err, string(store.Driver()))
}
