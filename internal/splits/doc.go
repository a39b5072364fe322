// Package splits assigns dataset records to train/val/test partitions.
//
// Assignment is deterministic: a record's split is derived from a sha256
// score over a seeded key, so the same seed and key produce the same split
// on every machine and every run. The key is either the record stem
// (HashSplitter) or the certificate id encoded in the stem (CertIDSplitter,
// which keeps front and back scans of one card in the same split). A
// StaticSplitter replays a previously pinned assignment instead of hashing.
package splits
