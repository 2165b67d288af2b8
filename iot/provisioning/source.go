package provisioning

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/relabs-tech/provisioning/core/logger"
)

// TemplateLoader loads templates from a template source.
//
// A source is one of
//
//	""                   the built-in templates
//	s3://bucket/prefix   provisioning-template.json and policy.json below prefix in an S3 bucket
//	<path>               provisioning-template.json and policy.json in a local directory
type TemplateLoader struct {
	// AWSConfig is needed for S3 sources only
	AWSConfig *aws.Config
	// UsePathStyle addresses buckets by path instead of by virtual host, as needed
	// by S3 compatible stores like localstack or minio
	UsePathStyle bool
}

// Load loads the template from source
func (l TemplateLoader) Load(ctx context.Context, source string) (*Template, error) {
	rlog := logger.FromContext(ctx)
	switch {
	case source == "":
		rlog.Debugln("provisioning: using built-in templates")
		return DefaultTemplate(), nil
	case strings.HasPrefix(source, "s3://"):
		rlog.Infoln("provisioning: loading templates from", source)
		return l.loadS3(ctx, strings.TrimPrefix(source, "s3://"))
	default:
		rlog.Infoln("provisioning: loading templates from directory", source)
		provisioningTemplate, err := os.ReadFile(filepath.Join(source, ProvisioningTemplateFile))
		if err != nil {
			return nil, err
		}
		policyDocument, err := os.ReadFile(filepath.Join(source, PolicyTemplateFile))
		if err != nil {
			return nil, err
		}
		return NewTemplate(provisioningTemplate, policyDocument)
	}
}

func (l TemplateLoader) loadS3(ctx context.Context, location string) (*Template, error) {
	if l.AWSConfig == nil {
		return nil, fmt.Errorf("AWS configuration is required for template source s3://%s", location)
	}
	bucket, prefix, _ := strings.Cut(location, "/")
	if bucket == "" {
		return nil, fmt.Errorf("template source s3://%s has no bucket", location)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	client := s3.NewFromConfig(*l.AWSConfig, func(o *s3.Options) {
		o.UsePathStyle = l.UsePathStyle
	})
	downloader := manager.NewDownloader(client)

	download := func(name string) ([]byte, error) {
		buf := manager.NewWriteAtBuffer(nil)
		_, err := downloader.Download(ctx, buf, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(prefix + name),
		})
		if err != nil {
			logger.FromContext(ctx).WithError(err).Errorf("Could not download s3://%s/%s", bucket, prefix+name)
			return nil, fmt.Errorf("cannot download %s: %w", name, err)
		}
		return buf.Bytes(), nil
	}

	provisioningTemplate, err := download(ProvisioningTemplateFile)
	if err != nil {
		return nil, err
	}
	policyDocument, err := download(PolicyTemplateFile)
	if err != nil {
		return nil, err
	}
	return NewTemplate(provisioningTemplate, policyDocument)
}
