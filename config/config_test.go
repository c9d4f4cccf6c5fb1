package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ReadsEnvironment(t *testing.T) {
	t.Setenv("STUDIO_TEST_KEY", "a=b")
	c := New()
	assert.Equal(t, "a=b", c["STUDIO_TEST_KEY"])
}

func TestGetters(t *testing.T) {
	c := map[string]string{
		"PORT":        "9090",
		"BAD_INT":     "abc",
		"DEBUG":       "true",
		"EMPTY":       "",
		"ORIGINS":     " https://a.dev, ,https://b.dev ",
		"TIMEOUT":     "15",
		"ADMIN_USERS": "brenno.om:pw:with:colons,broken,gabriel.an:Gab",
		"HASHES":      "ana:$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA;bad",
	}

	assert.Equal(t, "9090", GetString(c, "PORT", "8080"))
	assert.Equal(t, "8080", GetString(c, "EMPTY", "8080"))
	assert.Equal(t, "x", GetString(nil, "PORT", "x"))

	assert.Equal(t, 9090, GetInt(c, "PORT", 1))
	assert.Equal(t, 1, GetInt(c, "BAD_INT", 1))
	assert.Equal(t, 1, GetInt(c, "MISSING", 1))

	assert.True(t, GetBool(c, "DEBUG", false))
	assert.False(t, GetBool(c, "BAD_INT", false))

	assert.Equal(t, 15*time.Second, GetSeconds(c, "TIMEOUT", 180))
	assert.Equal(t, []string{"https://a.dev", "https://b.dev"}, GetList(c, "ORIGINS"))
	assert.Nil(t, GetList(c, "MISSING"))

	assert.Equal(t, map[string]string{
		"brenno.om":  "pw:with:colons",
		"gabriel.an": "Gab",
	}, GetPairs(c, "ADMIN_USERS", ","))
	assert.Equal(t, map[string]string{
		"ana": "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
	}, GetPairs(c, "HASHES", ";"))
}

type fakeParameters struct {
	pages [][]types.Parameter
	calls int
	err   error
}

func (f *fakeParameters) GetParametersByPath(_ context.Context, in *ssm.GetParametersByPathInput, _ ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[f.calls]
	f.calls++
	out := &ssm.GetParametersByPathOutput{Parameters: page}
	if f.calls < len(f.pages) {
		out.NextToken = aws.String("next")
	}
	return out, nil
}

func TestLoadParameters_Pages(t *testing.T) {
	source := &fakeParameters{pages: [][]types.Parameter{
		{{Name: aws.String("/studio/prod/JWT_SECRET"), Value: aws.String("s3cret")}},
		{{Name: aws.String("/studio/prod/SUPABASE_ANON_KEY"), Value: aws.String("anon")}},
	}}
	c := map[string]string{"JWT_SECRET": "from-env"}

	n, err := LoadParameters(context.Background(), source, "/studio/prod", c)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, source.calls)
	assert.Equal(t, "s3cret", c["JWT_SECRET"])
	assert.Equal(t, "anon", c["SUPABASE_ANON_KEY"])
}

func TestLoadParameters_Error(t *testing.T) {
	source := &fakeParameters{err: errors.New("access denied")}
	_, err := LoadParameters(context.Background(), source, "/studio", map[string]string{})
	assert.ErrorContains(t, err, "access denied")
}

func TestOverlaySSM_NoPath(t *testing.T) {
	n, err := OverlaySSM(context.Background(), map[string]string{})
	require.NoError(t, err)
	assert.Zero(t, n)
}
