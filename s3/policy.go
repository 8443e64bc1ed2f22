package s3

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/xml"

	"github.com/goccy/go-json"
)

// bucketPolicy is an S3 access policy document.
type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Sid       string   `json:"Sid"`
	Effect    string   `json:"Effect"`
	Principal string   `json:"Principal"`
	Action    []string `json:"Action"`
	Resource  []string `json:"Resource"`
}

// publicReadPolicy renders the policy document granting anonymous read
// access to every object in the bucket and anonymous listing of the
// bucket itself.
func publicReadPolicy(bucket string) ([]byte, error) {
	return json.Marshal(bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Sid:       "PublicReadGetObject",
			Effect:    "Allow",
			Principal: "*",
			Action:    []string{"s3:GetObject"},
			Resource:  []string{"arn:aws:s3:::" + bucket + "/*"},
		}, {
			Sid:       "PublicListBucket",
			Effect:    "Allow",
			Principal: "*",
			Action:    []string{"s3:ListBucket", "s3:GetBucketLocation"},
			Resource:  []string{"arn:aws:s3:::" + bucket},
		}},
	})
}

// lifecycleConfig is an S3 lifecycle configuration document.
type lifecycleConfig struct {
	XMLName xml.Name        `xml:"LifecycleConfiguration"`
	Rules   []lifecycleRule `xml:"Rule"`
}

type lifecycleRule struct {
	ID         string          `xml:"ID"`
	Prefix     string          `xml:"Prefix"`
	Status     string          `xml:"Status"`
	Expiration lifecycleExpiry `xml:"Expiration"`
}

type lifecycleExpiry struct {
	Days int `xml:"Days"`
}

// expiryLifecycle renders the lifecycle document expiring every object
// in the bucket after the given number of days.
func expiryLifecycle(days int) ([]byte, error) {
	return xml.Marshal(lifecycleConfig{
		Rules: []lifecycleRule{{
			ID:         "Expiry",
			Status:     "Enabled",
			Expiration: lifecycleExpiry{Days: days},
		}},
	})
}

// contentMD5 returns the base64 MD5 digest of a request body.
func contentMD5(body []byte) string {
	digest := md5.Sum(body)
	return base64.StdEncoding.EncodeToString(digest[:])
}
