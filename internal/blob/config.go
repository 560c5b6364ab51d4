package blob

// S3Config describes the bucket backups and the shared backup log live in.
type S3Config struct {
	BucketName    string `mapstructure:"bucket" json:"bucket"`
	Region        string `mapstructure:"region" json:"region"`
	AccessKey     string `mapstructure:"access_key" json:"access_key"`
	SecretKey     string `mapstructure:"secret_key" json:"-"`
	Endpoint      string `mapstructure:"endpoint" json:"endpoint,omitempty"`
	UseAccelerate bool   `mapstructure:"accelerate" json:"accelerate,omitempty"`
}

// WithS3Config creates a configuration for an AWS S3 bucket
func WithS3Config(bucketName, region, accessKey, secretKey string, accelerate bool) *S3Config {
	return &S3Config{
		BucketName:    bucketName,
		Region:        region,
		AccessKey:     accessKey,
		SecretKey:     secretKey,
		UseAccelerate: accelerate,
	}
}

// WithMinioConfig creates a configuration for a Minio (or any S3 compatible) bucket
func WithMinioConfig(url, bucketName, accessKey, secretKey string) *S3Config {
	return &S3Config{
		BucketName: bucketName,
		Endpoint:   url,
		Region:     "us-east-1",
		AccessKey:  accessKey,
		SecretKey:  secretKey,
	}
}

func (c *S3Config) Enabled() bool {
	return c != nil && c.BucketName != ""
}
