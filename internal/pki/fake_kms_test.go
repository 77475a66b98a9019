package pki

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
)

// fakeKMSClient implements KMSClient over a real in-memory key so signer
// behaviour can be tested offline. Signatures it produces are genuine.
type fakeKMSClient struct {
	key       crypto.Signer
	keySpec   types.KeySpec
	keyUsage  types.KeyUsageType
	signErr   error
	signCalls []types.SigningAlgorithmSpec
}

func newFakeKMSClient(key crypto.Signer, keySpec types.KeySpec) *fakeKMSClient {
	return &fakeKMSClient{
		key:      key,
		keySpec:  keySpec,
		keyUsage: types.KeyUsageTypeSignVerify,
	}
}

func (f *fakeKMSClient) DescribeKey(ctx context.Context, params *kms.DescribeKeyInput, optFns ...func(*kms.Options)) (*kms.DescribeKeyOutput, error) {
	return &kms.DescribeKeyOutput{
		KeyMetadata: &types.KeyMetadata{
			KeyId:    params.KeyId,
			KeySpec:  f.keySpec,
			KeyUsage: f.keyUsage,
		},
	}, nil
}

func (f *fakeKMSClient) GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error) {
	der, err := x509.MarshalPKIXPublicKey(f.key.Public())
	if err != nil {
		return nil, err
	}

	return &kms.GetPublicKeyOutput{
		KeyId:     params.KeyId,
		PublicKey: der,
	}, nil
}

func (f *fakeKMSClient) Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error) {
	if f.signErr != nil {
		return nil, f.signErr
	}

	f.signCalls = append(f.signCalls, params.SigningAlgorithm)

	if params.MessageType != types.MessageTypeDigest {
		return nil, fmt.Errorf("fake KMS only supports DIGEST message type, got %s", params.MessageType)
	}

	var signature []byte
	var err error

	switch key := f.key.(type) {
	case *ecdsa.PrivateKey:
		signature, err = ecdsa.SignASN1(rand.Reader, key, params.Message)
	case *rsa.PrivateKey:
		signature, err = rsa.SignPKCS1v15(rand.Reader, key, hashForSigningAlgorithm(params.SigningAlgorithm), params.Message)
	default:
		err = fmt.Errorf("fake KMS cannot sign with %T", f.key)
	}
	if err != nil {
		return nil, err
	}

	return &kms.SignOutput{
		KeyId:     params.KeyId,
		Signature: signature,
	}, nil
}

func hashForSigningAlgorithm(alg types.SigningAlgorithmSpec) crypto.Hash {
	switch alg {
	case types.SigningAlgorithmSpecEcdsaSha384:
		return crypto.SHA384
	case types.SigningAlgorithmSpecEcdsaSha512:
		return crypto.SHA512
	default:
		return crypto.SHA256
	}
}
