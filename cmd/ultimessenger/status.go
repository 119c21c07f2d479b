package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/typolo/ultimessenger/internal/models"
	"github.com/typolo/ultimessenger/internal/store"
	"github.com/typolo/ultimessenger/internal/stories"
	"github.com/typolo/ultimessenger/internal/stream"
	"github.com/typolo/ultimessenger/pkg/config"
)

type appStatus struct {
	GeneratedAt     time.Time
	Environment     string
	Port            string
	DataDir         string
	Users           int64
	Bots            int64
	Conversations   int64
	Messages        int64
	Stories         int64
	StaleStories    int64
	Calls           int64
	Ads             int64
	Subscriptions   int64
	StreamActive    bool
	DataDirSize     int64
	DataFileCount   int64
	StoreReady      bool
	StoreWarning    string
	StorageWarnings []string
}

type statusOptions struct {
	JSON bool
}

func parseStatusArgs(args []string) (statusOptions, error) {
	opts := statusOptions{}
	for _, arg := range args {
		switch arg {
		case "--json", "-j":
			opts.JSON = true
		default:
			return opts, fmt.Errorf("unknown status flag: %s", arg)
		}
	}
	return opts, nil
}

func runStatus(cfg *config.Config, out io.Writer, args []string) error {
	opts, err := parseStatusArgs(args)
	if err != nil {
		return err
	}

	status := collectStatus(cfg)
	if opts.JSON {
		return printStatusJSON(out, status)
	}
	printStatus(out, status)
	return nil
}

func collectStatus(cfg *config.Config) appStatus {
	status := appStatus{
		GeneratedAt: time.Now(),
		Environment: cfg.Environment,
		Port:        cfg.Port,
		DataDir:     cfg.DataDir,
	}

	if bytes, files, err := dirUsage(cfg.DataDir); err == nil {
		status.DataDirSize = bytes
		status.DataFileCount = files
	} else {
		status.StorageWarnings = append(status.StorageWarnings, fmt.Sprintf("data dir: %v", err))
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "store"))
	if err != nil {
		status.StoreWarning = fmt.Sprintf("store unavailable: %v", err)
		return status
	}
	defer st.Close()

	counts := []struct {
		collection string
		target     *int64
	}{
		{store.Users, &status.Users},
		{store.Chats, &status.Conversations},
		{store.Messages, &status.Messages},
		{store.Stories, &status.Stories},
		{store.Calls, &status.Calls},
		{store.Ads, &status.Ads},
		{store.Subscriptions, &status.Subscriptions},
	}
	for _, c := range counts {
		n, err := st.Count(c.collection)
		if err != nil {
			status.StoreWarning = fmt.Sprintf("could not read store stats: %v", err)
			return status
		}
		*c.target = n
	}

	users, err := store.GetAllInto[models.User](st, store.Users)
	if err != nil {
		status.StoreWarning = fmt.Sprintf("could not read store stats: %v", err)
		return status
	}
	for _, u := range users {
		if u.IsBot {
			status.Bots++
		}
	}

	storySvc := stories.New(st, nil, 0)
	if stale, err := storySvc.StaleCount(); err == nil {
		status.StaleStories = stale
	}

	var ls models.LiveStream
	if err := st.Get(store.Stream, stream.ID, &ls); err == nil {
		status.StreamActive = ls.IsActive
	}

	status.StoreReady = true
	return status
}

func dirUsage(root string) (int64, int64, error) {
	var totalBytes int64
	var totalFiles int64

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		totalBytes += info.Size()
		totalFiles++
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return totalBytes, totalFiles, nil
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func printStatus(out io.Writer, status appStatus) {
	fmt.Fprintln(out, "Ultimate Messenger Status")
	fmt.Fprintf(out, "Generated at: %s\n", status.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Environment : %s\n", status.Environment)
	fmt.Fprintf(out, "Port        : %s\n", status.Port)
	fmt.Fprintf(out, "Data dir    : %s\n", status.DataDir)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Data")
	if status.StoreReady {
		fmt.Fprintf(out, "  Users          : %d\n", status.Users)
		fmt.Fprintf(out, "  Bots           : %d\n", status.Bots)
		fmt.Fprintf(out, "  Conversations  : %d\n", status.Conversations)
		fmt.Fprintf(out, "  Messages       : %d\n", status.Messages)
		fmt.Fprintf(out, "  Stories        : %d\n", status.Stories)
		fmt.Fprintf(out, "  Stale stories  : %d\n", status.StaleStories)
		fmt.Fprintf(out, "  Calls          : %d\n", status.Calls)
		fmt.Fprintf(out, "  Ads            : %d\n", status.Ads)
		fmt.Fprintf(out, "  Push subs      : %d\n", status.Subscriptions)
		fmt.Fprintf(out, "  Stream active  : %t\n", status.StreamActive)
	} else {
		fmt.Fprintln(out, "  Store metrics  : n/a")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Storage")
	fmt.Fprintf(out, "  Data files : %d\n", status.DataFileCount)
	fmt.Fprintf(out, "  Data size  : %s\n", formatBytes(status.DataDirSize))

	if status.StoreWarning != "" {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Warning: %s\n", status.StoreWarning)
	}

	if len(status.StorageWarnings) > 0 {
		fmt.Fprintln(out)
		for _, warning := range status.StorageWarnings {
			fmt.Fprintf(out, "Warning: %s\n", warning)
		}
	}
}

func printStatusJSON(out io.Writer, status appStatus) error {
	payload := map[string]any{
		"generated_at": status.GeneratedAt.Format(time.RFC3339),
		"environment":  status.Environment,
		"port":         status.Port,
		"data_dir":     status.DataDir,
		"store_ready":  status.StoreReady,
		"metrics": map[string]any{
			"users":         status.Users,
			"bots":          status.Bots,
			"conversations": status.Conversations,
			"messages":      status.Messages,
			"stories":       status.Stories,
			"stale_stories": status.StaleStories,
			"calls":         status.Calls,
			"ads":           status.Ads,
			"push_subs":     status.Subscriptions,
			"stream_active": status.StreamActive,
		},
		"storage": map[string]any{
			"data_dir_bytes": status.DataDirSize,
			"data_dir_hum":   formatBytes(status.DataDirSize),
			"file_count":     status.DataFileCount,
		},
		"warnings": map[string]any{
			"store":   status.StoreWarning,
			"storage": status.StorageWarnings,
		},
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
