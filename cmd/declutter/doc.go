// Package main hosts the declutter bot entrypoint.
//
// Architecture overview:
//   - Gateway: internal/bot registers a MessageCreate handler that filters out
//     bot authors and duplicates, honors the per-channel toggle, extracts the
//     first URL and hands the slow work to the delivery queue.
//   - Resolution: internal/pipeline escalates through three tiers. Known
//     platforms hit their public API (Bluesky, Mastodon, a Twitter mirror,
//     Reddit's listing endpoint). Everything else gets a single Colly fetch
//     that reads Open Graph tags; pages that defeat that get the browser tier,
//     which tries a remote render API, a hosted extraction API and a slug
//     heuristic before launching a local headless Chrome. A minimal stub
//     computed from the URL alone guarantees every message gets an answer.
//   - Delivery: internal/delivery serializes previews per channel with a
//     pacing gap between posts; internal/publisher executes a cached
//     per-channel webhook so each preview carries the original poster's name
//     and avatar.
//   - Plumbing: Viper populates config from env/files with the DECLUTTER
//     prefix; zap provides structured logging; Prometheus metrics and health
//     probes are served by the chi-based ops server; per-channel settings
//     persist in SQLite.
//
// Run locally: go run ./cmd/declutter run --config config.yaml (or rely on
// DECLUTTER_* env overrides; discord.token is the only required value).
package main
