// Package main is the articlegen entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server accepts batches on POST /api/generate, validates them, records a pending job in
//     the in-memory JobStore and hands a queue item (which alone carries the provider credential) to the dispatcher.
//   - Dispatcher & queue: jobs flow through a bounded in-memory queue sized by generation.queue_depth and are consumed
//     by generation.workers workers. A full queue makes the submit fail with 503 instead of blocking forever.
//   - Pipeline: each worker calls the selected provider (Gemini through google.golang.org/genai, Groq through the
//     OpenAI-compatible openai-go client) once per article, cleans the text, writes Article_N_<keyword>/article.txt
//     into the job workspace and bumps completedArticles only after the file is on disk.
//   - Packaging: the workspace is zipped into articles.zip and published to the archive store (local disk, GCS or
//     S3). A job event goes to Pub/Sub when a topic is configured.
//   - Retention: a janitor deletes terminal jobs, their workspace and their archive after retention.ttl_minutes.
//
// Operational notes:
//   - Shutdown: SIGINT/SIGTERM stops the HTTP server, fails the in-flight and queued jobs with a shutdown reason and
//     closes cloud clients.
//   - Observability: zap logs carry job_id, keyword and sequence; Prometheus metrics are served on /metrics.
//   - Configuration: ARTICLEGEN_* environment variables (a .env file is honored), or --config with a YAML file.
//
// Quick checklist:
//   - Run the service: articlegen serve [--config config.yaml]
//   - Drive it: articlegen generate --input pairs.txt --provider gemini --api-key $KEY --per-keyword 2
package main
