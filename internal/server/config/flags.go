package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophdocs/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g. ":4000")
//	-d string   database DSN (postgres://..., sqlite://...)
//	-s string   document server JWT secret
//	-t duration editor token validity (e.g. "1h")
//	-f string   files directory
//	-m string   templates directory
//	-i string   internal base URL used by the document server
//	-p string   public base URL
//	-o string   document server URL
//	-k string   storage backend (local, s3)
//	-b string   S3 bucket
//	-e string   S3 base endpoint
//	-l string   log level
//
// Only the flags above are taken from os.Args, see flagx.FilterArgs.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-f", "-m", "-i", "-p", "-o", "-k", "-b", "-e", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.JWTSecret, "s", config.JWTSecret, "document server JWT secret")

	fs.DurationVar(&config.EditorTokenTTL, "t", config.EditorTokenTTL, "editor token validity")

	fs.StringVar(&config.FilesDir, "f", config.FilesDir, "files directory")
	fs.StringVar(&config.TemplatesDir, "m", config.TemplatesDir, "templates directory")
	fs.StringVar(&config.InternalBaseURL, "i", config.InternalBaseURL, "internal base URL for the document server")
	fs.StringVar(&config.PublicBaseURL, "p", config.PublicBaseURL, "public base URL")
	fs.StringVar(&config.DocumentServerURL, "o", config.DocumentServerURL, "document server URL")
	fs.StringVar(&config.StorageBackend, "k", config.StorageBackend, "storage backend (local, s3)")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(args)
}
