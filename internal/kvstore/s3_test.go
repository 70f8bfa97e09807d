package kvstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockObjectAPI is a mock implementation of ObjectAPI.
type MockObjectAPI struct {
	mock.Mock
}

func (m *MockObjectAPI) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *MockObjectAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *MockObjectAPI) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

func keyIs(key string) interface{} {
	return mock.MatchedBy(func(in interface{}) bool {
		switch v := in.(type) {
		case *s3.GetObjectInput:
			return aws.ToString(v.Key) == key && aws.ToString(v.Bucket) == "carts"
		case *s3.PutObjectInput:
			return aws.ToString(v.Key) == key && aws.ToString(v.Bucket) == "carts"
		case *s3.DeleteObjectInput:
			return aws.ToString(v.Key) == key && aws.ToString(v.Bucket) == "carts"
		}
		return false
	})
}

func TestS3Store_Get(t *testing.T) {
	ctx := context.Background()
	client := new(MockObjectAPI)
	store := NewS3StoreWithClient(client, "carts", "profiles", "alice", zerolog.Nop())

	client.On("GetObject", ctx, keyIs("profiles/alice/ecom_lang")).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader("en")),
	}, nil)

	value, ok, err := store.Get(ctx, LanguageKey)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "en", value)
	client.AssertExpectations(t)
}

func TestS3Store_GetMissingKey(t *testing.T) {
	ctx := context.Background()
	client := new(MockObjectAPI)
	store := NewS3StoreWithClient(client, "carts", "profiles/", "alice", zerolog.Nop())

	client.On("GetObject", ctx, keyIs("profiles/alice/guestCartV1")).
		Return(nil, &types.NoSuchKey{Message: aws.String("missing")})

	_, ok, err := store.Get(ctx, GuestCartKey)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3Store_GetFailure(t *testing.T) {
	ctx := context.Background()
	client := new(MockObjectAPI)
	store := NewS3StoreWithClient(client, "carts", "", "", zerolog.Nop())

	client.On("GetObject", ctx, keyIs("default/guestCartV1")).
		Return(nil, errors.New("connection reset"))

	_, ok, err := store.Get(ctx, GuestCartKey)

	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "failed to get object from S3")
}

func TestS3Store_SetAndDelete(t *testing.T) {
	ctx := context.Background()
	client := new(MockObjectAPI)
	store := NewS3StoreWithClient(client, "carts", "profiles", "alice", zerolog.Nop())

	client.On("PutObject", ctx, keyIs("profiles/alice/ecom_access_token")).Return(&s3.PutObjectOutput{}, nil)
	client.On("DeleteObject", ctx, keyIs("profiles/alice/ecom_access_token")).Return(&s3.DeleteObjectOutput{}, nil)

	require.NoError(t, store.Set(ctx, AccessTokenKey, "token"))
	require.NoError(t, store.Delete(ctx, AccessTokenKey))

	client.AssertExpectations(t)
}
