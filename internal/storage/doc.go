// Package storage provides the durable object store for video uploads and
// export artifacts, with a local filesystem backend and a Supabase bucket
// backend selected by configuration.
package storage
