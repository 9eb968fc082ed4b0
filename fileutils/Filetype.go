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

package fileutils

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const maxHeaderBuffer = 3072

var ErrCantReadHeader = errors.New("cant read file header")

// Formats the extraction tool is known to handle.
var archiveTypes = []string{
	"application/zip",
	"application/x-tar",
	"application/gzip",
	"application/x-7z-compressed",
	"application/x-rar-compressed",
	"application/x-xz",
	"application/x-bzip2",
	"application/vnd.ms-cab-compressed",
	"application/x-iso9660-image",
	"application/jar",
}

// FileType is the content type detected from the first bytes of a file.
type FileType struct {
	MIME    string
	Archive bool
}

func (f FileType) String() string {
	if f.MIME == "" {
		return "unknown"
	}

	return f.MIME
}

func Detect(reader io.Reader) (FileType, error) {
	head := make([]byte, maxHeaderBuffer)
	read, err := io.ReadFull(reader, head)

	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return FileType{}, fmt.Errorf("%w: %v", ErrCantReadHeader, err)
	}

	mtype := mimetype.Detect(head[:read])
	fileType := FileType{MIME: strings.Split(mtype.String(), ";")[0]}

	for current := mtype; current != nil; current = current.Parent() {
		if isArchive(current.String()) {
			fileType.Archive = true
			break
		}
	}

	return fileType, nil
}

func isArchive(mime string) bool {
	for _, archiveType := range archiveTypes {
		if mime == archiveType {
			return true
		}
	}

	return false
}
