package s3

// Placeholder for an S3-backed core.ArtifactAccess implementation.
//
// Intent: provide a persistent content-addressed store using AWS S3 (or a
// compatible API), keyed the same way InMemoryStore is (artifact.ContentID),
// so a deployment can swap backends without changing how the reasoning
// engine offloads or retrieves artifacts. This file intentionally remains a
// stub so that downstream contributors can supply credentials/client wiring
// without pulling an AWS dependency into minimal builds. If you implement
// this, keep the dependency surface narrow and make the configuration
// (bucket, prefix, ACL, encryption) explicit via a small Config struct.
