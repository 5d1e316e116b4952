package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

type cognitoAPI interface {
	SignUp(context.Context, *cip.SignUpInput, ...func(*cip.Options)) (*cip.SignUpOutput, error)
	AdminConfirmSignUp(context.Context, *cip.AdminConfirmSignUpInput, ...func(*cip.Options)) (*cip.AdminConfirmSignUpOutput, error)
	InitiateAuth(context.Context, *cip.InitiateAuthInput, ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	GlobalSignOut(context.Context, *cip.GlobalSignOutInput, ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
	UpdateUserAttributes(context.Context, *cip.UpdateUserAttributesInput, ...func(*cip.Options)) (*cip.UpdateUserAttributesOutput, error)
}

type idTokenVerifier interface {
	Verify(ctx context.Context, token string) (*IDTokenClaims, error)
}

// CognitoConfig identifies the user pool and app client.
type CognitoConfig struct {
	Region     string
	UserPoolID string
	ClientID   string
}

// CognitoBackend signs users up and in against a Cognito user pool using
// the USER_PASSWORD_AUTH flow. New accounts are confirmed immediately so
// signup leaves the user signed in.
type CognitoBackend struct {
	client   cognitoAPI
	verifier idTokenVerifier
	cfg      CognitoConfig
	logger   *logging.Logger
}

var _ Backend = (*CognitoBackend)(nil)

// NewCognitoBackend builds a backend from a Cognito client.
func NewCognitoBackend(client cognitoAPI, cfg CognitoConfig, logger *logging.Logger) *CognitoBackend {
	return newCognitoBackend(client, NewTokenVerifier(cfg.Region, cfg.UserPoolID, cfg.ClientID), cfg, logger)
}

func newCognitoBackend(client cognitoAPI, verifier idTokenVerifier, cfg CognitoConfig, logger *logging.Logger) *CognitoBackend {
	if client == nil {
		panic("identity: cognito client required")
	}
	if cfg.UserPoolID == "" || cfg.ClientID == "" {
		panic("identity: cognito user pool and client id required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CognitoBackend{client: client, verifier: verifier, cfg: cfg, logger: logger}
}

func (b *CognitoBackend) CreateAccount(ctx context.Context, email, password string) (User, Credentials, error) {
	_, err := b.client.SignUp(ctx, &cip.SignUpInput{
		ClientId: aws.String(b.cfg.ClientID),
		Username: aws.String(email),
		Password: aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
		},
	})
	if err != nil {
		return User{}, Credentials{}, mapCognitoError("sign up", err)
	}
	if _, err := b.client.AdminConfirmSignUp(ctx, &cip.AdminConfirmSignUpInput{
		UserPoolId: aws.String(b.cfg.UserPoolID),
		Username:   aws.String(email),
	}); err != nil {
		return User{}, Credentials{}, mapCognitoError("confirm sign up", err)
	}
	return b.Authenticate(ctx, email, password)
}

func (b *CognitoBackend) Authenticate(ctx context.Context, email, password string) (User, Credentials, error) {
	out, err := b.client.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(b.cfg.ClientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return User{}, Credentials{}, mapCognitoError("initiate auth", err)
	}
	result := out.AuthenticationResult
	if result == nil {
		// MFA or password-change challenges are not supported by the portal.
		return User{}, Credentials{}, fmt.Errorf("identity: unsupported auth challenge %s", out.ChallengeName)
	}
	creds := Credentials{
		AccessToken:  aws.ToString(result.AccessToken),
		IDToken:      aws.ToString(result.IdToken),
		RefreshToken: aws.ToString(result.RefreshToken),
	}
	claims, err := b.verifier.Verify(ctx, creds.IDToken)
	if err != nil {
		b.logger.Error("cognito id token rejected", "error", err)
		return User{}, Credentials{}, err
	}
	return User{ID: claims.Subject, Email: claims.Email, DisplayName: claims.Name}, creds, nil
}

func (b *CognitoBackend) SignOut(ctx context.Context, creds Credentials) error {
	if creds.AccessToken == "" {
		return ErrNotSignedIn
	}
	if _, err := b.client.GlobalSignOut(ctx, &cip.GlobalSignOutInput{AccessToken: aws.String(creds.AccessToken)}); err != nil {
		return mapCognitoError("global sign out", err)
	}
	return nil
}

func (b *CognitoBackend) UpdateDisplayName(ctx context.Context, creds Credentials, name string) error {
	if creds.AccessToken == "" {
		return ErrNotSignedIn
	}
	_, err := b.client.UpdateUserAttributes(ctx, &cip.UpdateUserAttributesInput{
		AccessToken: aws.String(creds.AccessToken),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("name"), Value: aws.String(name)},
		},
	})
	if err != nil {
		return mapCognitoError("update attributes", err)
	}
	return nil
}

func mapCognitoError(action string, err error) error {
	var (
		exists   *types.UsernameExistsException
		badPass  *types.InvalidPasswordException
		notAuth  *types.NotAuthorizedException
		notFound *types.UserNotFoundException
		badParam *types.InvalidParameterException
	)
	switch {
	case errors.As(err, &exists):
		return fmt.Errorf("%w: %s", ErrEmailInUse, action)
	case errors.As(err, &badPass):
		return fmt.Errorf("%w: %s", ErrWeakPassword, aws.ToString(badPass.Message))
	case errors.As(err, &notAuth), errors.As(err, &notFound):
		return ErrInvalidCredentials
	case errors.As(err, &badParam):
		return fmt.Errorf("%w: %s", ErrInvalidEmail, aws.ToString(badParam.Message))
	default:
		return fmt.Errorf("identity: cognito %s: %w", action, err)
	}
}
