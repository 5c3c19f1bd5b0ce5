/*
Copyright © 2026 The pagetran authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagetran/pagetran/internal/settings"
	"github.com/pagetran/pagetran/internal/store"
)

var purgeAll bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the translation cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count and size",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, cfg, err := openCache()
		if err != nil {
			return err
		}
		defer db.Close()

		st, err := db.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to read cache stats: %w", err)
		}
		fmt.Printf("Path:    %s\n", cfg.CachePath)
		fmt.Printf("Entries: %d\n", st.Entries)
		fmt.Printf("Size:    %.1f KiB\n", float64(st.SizeBytes)/1024)
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cache entries (--all deletes everything)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, cfg, err := openCache()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		if purgeAll {
			if err := db.Clear(ctx); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Println("Cache cleared")
			return nil
		}

		ttl := time.Duration(cfg.CacheTTLDays) * 24 * time.Hour
		deleted, err := db.PurgeExpired(ctx, ttl)
		if err != nil {
			return fmt.Errorf("failed to purge cache: %w", err)
		}
		fmt.Printf("Deleted %d expired entries\n", deleted)
		return nil
	},
}

func openCache() (*store.Store, settings.Snapshot, error) {
	file, err := settings.Load(configPath)
	if err != nil {
		return nil, settings.Snapshot{}, err
	}
	cfg := file.Get()
	db, err := store.New(cfg.CachePath)
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to open cache: %w", err)
	}
	return db, cfg, nil
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	cachePurgeCmd.Flags().BoolVar(&purgeAll, "all", false, "Delete every entry, not just expired ones")
}
