// Package ingestor is a metadata-driven Extract & Load tool that copies
// datasets into columnar files on a data lake.
//
// A run is described by a group document, {metadata_dir}/{group}.json or
// .yaml, holding an optional source_config and an ordered dataset_config
// list. Each dataset names its source columns (features), their declared
// dtypes and a destination directory; the output is one Parquet, ORC or
// Avro file per dataset.
//
// # Architecture
//
// Every group runs as a single-threaded pull loop:
//
//	producer (SQL cursor | CSV reader | Kafka buffer)
//	    -> models.Batch
//	    -> columnar.Write (schema coercion, one block per batch)
//	    -> filesystem.Gateway (local | hdfs | s3 | gcs)
//
// Datasets run in declaration order and the first failure stops the group.
//
// # Quick Start
//
//	ingestor plan --group shop      # show queries and output paths
//	ingestor run --group shop       # ingest every dataset
//	ingestor ddl --group shop       # Hive CREATE EXTERNAL TABLE statements
//	ingestor inspect /lake/users/users.parquet
//
// # Key Packages
//
//   - internal/pipeline: the orchestrator, file runner and stream runner
//   - pkg/metadata: group documents
//   - pkg/schema: dtype resolution
//   - pkg/source: relational connections and dialects
//   - pkg/extract: paged SELECT extraction
//   - pkg/formats/columnar: Parquet, ORC and Avro writers and readers
//   - pkg/filesystem: output gateways
//   - pkg/stream, pkg/publish: Kafka consume and produce
//
// # Configuration
//
// Process settings come from an optional YAML file (--config) with
// INGESTOR_* environment overrides, e.g. INGESTOR_OUTPUT_FORMAT=orc or
// INGESTOR_KAFKA_BROKERS. A .env file in the working directory is loaded
// first.
package ingestor
