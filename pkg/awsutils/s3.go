/*
 *    Copyright 2023 iFood
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package awsutils

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

const (
	downloadConcurrency = 4
	downloadPartSize    = 64 * 1024 * 1024
	uploadConcurrency   = 4
)

type S3 struct {
	svc        *s3.S3
	downloader *s3manager.Downloader
	uploader   *s3manager.Uploader
}

func (s *S3) Init(awsSession *session.Session, awsConfig *aws.Config) {
	s.svc = s3.New(awsSession, awsConfig)

	s.downloader = s3manager.NewDownloaderWithClient(s.svc, func(d *s3manager.Downloader) {
		d.Concurrency = downloadConcurrency
		d.PartSize = downloadPartSize
	})

	s.uploader = s3manager.NewUploaderWithClient(s.svc, func(u *s3manager.Uploader) {
		u.PartSize = downloadPartSize
		u.Concurrency = uploadConcurrency
	})
}

// versionID is optional, an empty one addresses the latest version.
func optionalVersion(versionID string) *string {
	if versionID == "" {
		return nil
	}

	return aws.String(versionID)
}

// Downloads an object from S3 using some paralellism. The key must already be url-decoded.
// Refs https://docs.aws.amazon.com/sdk-for-go/api/service/s3/s3manager/#Downloader
func (s *S3) DownloadFromS3Bucket(ctx context.Context, file io.WriterAt, bucket, key, versionID string) error {
	object := &s3.GetObjectInput{
		Bucket:    aws.String(bucket),
		Key:       aws.String(key),
		VersionId: optionalVersion(versionID),
	}

	_, err := s.downloader.DownloadWithContext(ctx, file, object)

	return err
}

// Writes file to AWS using some parallelism.
// https://www.matscloud.com/docs/cloud-sdk/go-and-s3/
func (s *S3) UploadToS3Bucket(ctx context.Context, data io.Reader, bucket, key string) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   data,
	})

	return err
}

// Get tags from AWS object
func (s *S3) GetTagsFromObject(ctx context.Context, bucket, key, versionID string) ([]*s3.Tag, error) {
	output, err := s.svc.GetObjectTaggingWithContext(ctx, &s3.GetObjectTaggingInput{
		Bucket:    aws.String(bucket),
		Key:       aws.String(key),
		VersionId: optionalVersion(versionID),
	})
	if err != nil {
		return nil, err
	}

	return output.TagSet, nil
}

// Replaces the whole tag set of an object
func (s *S3) PutTagsOnObject(ctx context.Context, bucket, key, versionID string, tags []*s3.Tag) error {
	_, err := s.svc.PutObjectTaggingWithContext(ctx, &s3.PutObjectTaggingInput{
		Bucket:    aws.String(bucket),
		Key:       aws.String(key),
		VersionId: optionalVersion(versionID),
		Tagging:   &s3.Tagging{TagSet: tags},
	})

	return err
}
