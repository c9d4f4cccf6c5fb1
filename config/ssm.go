package config

import (
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ParameterSource is the part of the SSM client used to read a parameter tree
type ParameterSource interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// OverlaySSM copies every parameter under SSM_PARAMETER_PATH into config, keyed by the last path
// segment (/studio/prod/JWT_SECRET becomes JWT_SECRET). It does nothing when the path is unset.
func OverlaySSM(ctx context.Context, config map[string]string) (int, error) {
	parameterPath := GetString(config, "SSM_PARAMETER_PATH", "")
	if parameterPath == "" {
		return 0, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region := GetString(config, "AWS_REGION", ""); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return 0, fmt.Errorf("load aws config: %w", err)
	}

	return LoadParameters(ctx, ssm.NewFromConfig(awsCfg), parameterPath, config)
}

// LoadParameters pages through the parameters under parameterPath and writes them into config
func LoadParameters(ctx context.Context, source ParameterSource, parameterPath string, config map[string]string) (int, error) {
	loaded := 0
	var nextToken *string
	for {
		out, err := source.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
			Path:           aws.String(parameterPath),
			Recursive:      aws.Bool(true),
			WithDecryption: aws.Bool(true),
			NextToken:      nextToken,
		})
		if err != nil {
			return loaded, fmt.Errorf("read ssm parameters under %s: %w", parameterPath, err)
		}

		for _, p := range out.Parameters {
			name := path.Base(aws.ToString(p.Name))
			if name == "" || name == "." || name == "/" {
				continue
			}
			config[name] = aws.ToString(p.Value)
			loaded++
		}

		if out.NextToken == nil || *out.NextToken == "" {
			return loaded, nil
		}
		nextToken = out.NextToken
	}
}
