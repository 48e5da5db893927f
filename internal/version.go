package internal

// Version is stamped into run manifests so fingerprints change across releases
const Version = "0.1.0"
