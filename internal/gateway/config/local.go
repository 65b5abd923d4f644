package config

// applyLocalDefaults fills developer settings for APP_ENV=local. A MinIO
// endpoint given as ARTIFACT_MINIO_ENDPOINT gets the compose credentials.
func applyLocalDefaults(cfg *Config, get func(string) string) {
	if get("LOG_LEVEL") == "" {
		cfg.LogLevel = "debug"
	}
	minio := get("ARTIFACT_MINIO_ENDPOINT")
	if cfg.Artifact.Endpoint != "" || minio == "" {
		return
	}
	cfg.Artifact = ArtifactConfig{
		Endpoint:  minio,
		Region:    cfg.Artifact.Region,
		AccessKey: firstNonEmpty(cfg.Artifact.AccessKey, "appforge"),
		SecretKey: firstNonEmpty(cfg.Artifact.SecretKey, "appforge123"),
		Bucket:    firstNonEmpty(cfg.Artifact.Bucket, "appforge-artifacts"),
		UseSSL:    false,
	}
}
