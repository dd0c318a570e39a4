package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ericnjogu/video-object-detection/internal/store"
	"github.com/ericnjogu/video-object-detection/internal/utils"
)

var (
	listInstance string
	listLimit    int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List detection requests stored by the handler",
	Run: func(cmd *cobra.Command, args []string) {
		runList(cmd.Context())
	},
}

func init() {
	listCmd.Flags().StringVar(&listInstance, "instance_name", "", "Only show requests from this instance")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "Maximum number of requests to show (0 for all)")
	rootCmd.AddCommand(listCmd)
}

func runList(ctx context.Context) {
	db, err := openDB(ctx)
	if err != nil {
		utils.Die("Failed to open database", err, nil)
	}
	defer db.Close(context.Background())

	requests, err := db.ListRequests(ctx, listInstance, listLimit)
	if err != nil {
		utils.Die("Failed to list detection requests", err, nil)
	}

	if len(requests) == 0 {
		fmt.Println("No detection requests found in database.")
		return
	}
	printRequests(os.Stdout, requests)
}

func printRequests(out io.Writer, requests []store.StoredRequest) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tINSTANCE\tSOURCE\tFRAME\tDETECTIONS\tRECEIVED")
	fmt.Fprintln(w, "--\t--------\t------\t-----\t----------\t--------")

	for _, r := range requests {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", shortID(r.ID), r.InstanceName, r.Source, r.FrameCount,
			summarize(r), r.ReceivedAt.Local().Format("2006-01-02 15:04:05"))
	}
	w.Flush()
}

// summarize renders detections as "name:score" pairs, best score first.
func summarize(r store.StoredRequest) string {
	type pair struct {
		name  string
		score float32
	}
	pairs := make([]pair, 0, len(r.Classes))
	for i, c := range r.Classes {
		name, ok := r.CategoryIndex[c]
		if !ok {
			name = fmt.Sprint(c)
		}
		var score float32
		if i < len(r.Scores) {
			score = r.Scores[i]
		}
		pairs = append(pairs, pair{name, score})
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s:%.2f", p.name, p.score)
	}
	return strings.Join(parts, " ")
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
