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
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/endpoints"
	"github.com/aws/aws-sdk-go/aws/session"
)

const (
	defaultMaxConnsPerHost = 64
	idleConnectionsTimeout = 90 * time.Second
)

// SessionConfig tunes the single session every AWS client of the service is built from.
type SessionConfig struct {
	Region string
	// Endpoint overrides the resolver for every service, used for localstack.
	Endpoint        string
	MaxConnsPerHost int
	MaxRetries      int
}

func NewSession(cfg SessionConfig) (*session.Session, error) {
	maxConnsPerHost := cfg.MaxConnsPerHost
	if maxConnsPerHost <= 0 {
		maxConnsPerHost = defaultMaxConnsPerHost
	}

	// Parallel ranged downloads and tag calls hit the same S3 host, idle connections are kept for all of them.
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        2 * maxConnsPerHost,
		MaxIdleConnsPerHost: maxConnsPerHost,
		MaxConnsPerHost:     maxConnsPerHost,
		IdleConnTimeout:     idleConnectionsTimeout,
	}

	config := aws.NewConfig().
		WithRegion(cfg.Region).
		WithS3ForcePathStyle(true).
		WithDisableRestProtocolURICleaning(true).
		WithMaxRetries(cfg.MaxRetries).
		WithHTTPClient(&http.Client{Transport: transport})

	if cfg.Endpoint != "" {
		config.WithEndpointResolver(staticResolver(cfg.Endpoint))
	}

	return session.NewSessionWithOptions(session.Options{
		Config:            *config,
		SharedConfigState: session.SharedConfigEnable,
	})
}

func staticResolver(endpoint string) endpoints.ResolverFunc {
	return func(service, region string, optFns ...func(*endpoints.Options)) (endpoints.ResolvedEndpoint, error) {
		return endpoints.ResolvedEndpoint{
			PartitionID:   "aws",
			URL:           endpoint,
			SigningRegion: region,
		}, nil
	}
}
