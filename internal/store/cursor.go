package store

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/klauspost/compress/gzip"

	"github.com/hunoz/dave-user-api/internal/apperrors"
)

// EncodeCursor wraps a last-evaluated key into an opaque continuation token:
// JSON, gzip-compressed, base64-encoded. An empty key yields an empty token.
func EncodeCursor(key map[string]types.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}

	var plain map[string]string
	if err := attributevalue.UnmarshalMap(key, &plain); err != nil {
		return "", apperrors.Internal(fmt.Errorf("failed to flatten page key: %w", err))
	}

	payload, err := json.Marshal(plain)
	if err != nil {
		return "", apperrors.Internal(fmt.Errorf("failed to marshal page key: %w", err))
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return "", apperrors.Internal(fmt.Errorf("failed to compress page key: %w", err))
	}
	if err := zw.Close(); err != nil {
		return "", apperrors.Internal(fmt.Errorf("failed to compress page key: %w", err))
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeCursor is the inverse of EncodeCursor. A token that fails to decode,
// decompress, or parse is an internal error, never an empty result.
func DecodeCursor(token string) (map[string]types.AttributeValue, error) {
	if token == "" {
		return nil, nil
	}

	compressed, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("malformed page token: %w", err))
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("malformed page token: %w", err))
	}
	payload, err := io.ReadAll(zr)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("malformed page token: %w", err))
	}
	if err := zr.Close(); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("malformed page token: %w", err))
	}

	var plain map[string]string
	if err := json.Unmarshal(payload, &plain); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("malformed page token: %w", err))
	}

	key, err := attributevalue.MarshalMap(plain)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("malformed page token: %w", err))
	}
	return key, nil
}
