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

package out

import (
	"context"
	"io"
	"scan-sentinel/domain/entities"
)

//go:generate go run -mod=mod github.com/golang/mock/mockgen -destination=../../../mocks/mock_object_storage.go -package=mocks -source=ObjectStorage.go
type ObjectStorage interface {
	ObjectReader
	ObjectWriter
	ObjectTagger
}

// Interface to be implemented by AWS S3 and any S3 compatible storage.
// Adapters must wrap entities.ErrObjectNotFound when the object or version is gone.
type ObjectReader interface {
	Download(ctx context.Context, ref entities.ObjectRef, writer io.WriterAt) error
}

type ObjectWriter interface {
	Upload(ctx context.Context, bucket, key string, reader io.Reader) error
}

// The tagging API replaces the whole tag set on every put.
type ObjectTagger interface {
	GetTags(ctx context.Context, ref entities.ObjectRef) ([]entities.Tag, error)
	PutTags(ctx context.Context, ref entities.ObjectRef, tags []entities.Tag) error
}
