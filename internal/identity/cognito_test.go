package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

type mockCognito struct {
	signUpErr    error
	authErr      error
	signUps      []*cip.SignUpInput
	confirms     []*cip.AdminConfirmSignUpInput
	signOuts     []*cip.GlobalSignOutInput
	attrUpdates  []*cip.UpdateUserAttributesInput
	idToken      string
	challengeOut bool
}

func (m *mockCognito) SignUp(ctx context.Context, in *cip.SignUpInput, _ ...func(*cip.Options)) (*cip.SignUpOutput, error) {
	m.signUps = append(m.signUps, in)
	if m.signUpErr != nil {
		return nil, m.signUpErr
	}
	return &cip.SignUpOutput{UserSub: aws.String("sub-1")}, nil
}

func (m *mockCognito) AdminConfirmSignUp(ctx context.Context, in *cip.AdminConfirmSignUpInput, _ ...func(*cip.Options)) (*cip.AdminConfirmSignUpOutput, error) {
	m.confirms = append(m.confirms, in)
	return &cip.AdminConfirmSignUpOutput{}, nil
}

func (m *mockCognito) InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, _ ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	if m.authErr != nil {
		return nil, m.authErr
	}
	if m.challengeOut {
		return &cip.InitiateAuthOutput{ChallengeName: types.ChallengeNameTypeNewPasswordRequired}, nil
	}
	return &cip.InitiateAuthOutput{AuthenticationResult: &types.AuthenticationResultType{
		AccessToken:  aws.String("access-token"),
		IdToken:      aws.String(m.idToken),
		RefreshToken: aws.String("refresh-token"),
	}}, nil
}

func (m *mockCognito) GlobalSignOut(ctx context.Context, in *cip.GlobalSignOutInput, _ ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error) {
	m.signOuts = append(m.signOuts, in)
	return &cip.GlobalSignOutOutput{}, nil
}

func (m *mockCognito) UpdateUserAttributes(ctx context.Context, in *cip.UpdateUserAttributesInput, _ ...func(*cip.Options)) (*cip.UpdateUserAttributesOutput, error) {
	m.attrUpdates = append(m.attrUpdates, in)
	return &cip.UpdateUserAttributesOutput{}, nil
}

type stubVerifier struct {
	claims *IDTokenClaims
	err    error
}

func (s stubVerifier) Verify(ctx context.Context, token string) (*IDTokenClaims, error) {
	return s.claims, s.err
}

var testCognitoCfg = CognitoConfig{Region: "us-east-1", UserPoolID: "us-east-1_pool", ClientID: "client-1"}

func aliceClaims() *IDTokenClaims {
	return &IDTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "sub-1"},
		Email:            "alice@x.com",
		Name:             "Alice",
		TokenUse:         "id",
	}
}

func TestCognitoBackend_CreateAccountConfirmsAndSignsIn(t *testing.T) {
	api := &mockCognito{idToken: "id-token"}
	backend := newCognitoBackend(api, stubVerifier{claims: aliceClaims()}, testCognitoCfg, logging.Default())

	user, creds, err := backend.CreateAccount(context.Background(), "alice@x.com", "Secret123!")
	require.NoError(t, err)
	assert.Equal(t, User{ID: "sub-1", Email: "alice@x.com", DisplayName: "Alice"}, user)
	assert.Equal(t, "access-token", creds.AccessToken)
	require.Len(t, api.signUps, 1)
	assert.Equal(t, "client-1", aws.ToString(api.signUps[0].ClientId))
	require.Len(t, api.confirms, 1)
	assert.Equal(t, "us-east-1_pool", aws.ToString(api.confirms[0].UserPoolId))
}

func TestCognitoBackend_MapsProviderErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"duplicate", &types.UsernameExistsException{Message: aws.String("exists")}, ErrEmailInUse},
		{"weak password", &types.InvalidPasswordException{Message: aws.String("too short")}, ErrWeakPassword},
		{"bad email", &types.InvalidParameterException{Message: aws.String("email")}, ErrInvalidEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := newCognitoBackend(&mockCognito{signUpErr: tc.err}, stubVerifier{}, testCognitoCfg, logging.Default())
			_, _, err := backend.CreateAccount(context.Background(), "alice@x.com", "pw")
			assert.ErrorIs(t, err, tc.want)
		})
	}

	backend := newCognitoBackend(&mockCognito{authErr: &types.NotAuthorizedException{}}, stubVerifier{}, testCognitoCfg, logging.Default())
	_, _, err := backend.Authenticate(context.Background(), "doctor@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	network := errors.New("dial tcp: timeout")
	backend = newCognitoBackend(&mockCognito{authErr: network}, stubVerifier{}, testCognitoCfg, logging.Default())
	_, _, err = backend.Authenticate(context.Background(), "doctor@example.com", "pw")
	assert.ErrorIs(t, err, network)
}

func TestCognitoBackend_ChallengeIsAnError(t *testing.T) {
	backend := newCognitoBackend(&mockCognito{challengeOut: true}, stubVerifier{}, testCognitoCfg, logging.Default())
	_, _, err := backend.Authenticate(context.Background(), "alice@x.com", "pw")
	assert.Error(t, err)
}

func TestCognitoBackend_SignOutAndRename(t *testing.T) {
	api := &mockCognito{}
	backend := newCognitoBackend(api, stubVerifier{}, testCognitoCfg, logging.Default())
	ctx := context.Background()

	assert.ErrorIs(t, backend.SignOut(ctx, Credentials{}), ErrNotSignedIn)
	require.NoError(t, backend.SignOut(ctx, Credentials{AccessToken: "tok"}))
	require.Len(t, api.signOuts, 1)

	require.NoError(t, backend.UpdateDisplayName(ctx, Credentials{AccessToken: "tok"}, "Alice"))
	require.Len(t, api.attrUpdates, 1)
	assert.Equal(t, "name", aws.ToString(api.attrUpdates[0].UserAttributes[0].Name))
}

func TestTokenVerifier_VerifiesAgainstJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{{
			"kid": "kid-1",
			"kty": "RSA",
			"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		}}})
	}))
	defer srv.Close()

	issuer := "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_pool"
	verifier := newTokenVerifier(issuer, srv.URL, "client-1", srv.Client())

	sign := func(claims *IDTokenClaims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		token.Header["kid"] = "kid-1"
		signed, err := token.SignedString(key)
		require.NoError(t, err)
		return signed
	}
	valid := aliceClaims()
	valid.Issuer = issuer
	valid.Audience = jwt.ClaimStrings{"client-1"}
	valid.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))

	claims, err := verifier.Verify(context.Background(), sign(valid))
	require.NoError(t, err)
	assert.Equal(t, "sub-1", claims.Subject)
	assert.Equal(t, "Alice", claims.Name)

	wrongAud := aliceClaims()
	wrongAud.Issuer = issuer
	wrongAud.Audience = jwt.ClaimStrings{"other"}
	wrongAud.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	_, err = verifier.Verify(context.Background(), sign(wrongAud))
	assert.Error(t, err)

	access := aliceClaims()
	access.TokenUse = "access"
	access.Issuer = issuer
	access.Audience = jwt.ClaimStrings{"client-1"}
	access.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	_, err = verifier.Verify(context.Background(), sign(access))
	assert.Error(t, err)
}

func TestParseRSAPublicKeyRejectsBadInput(t *testing.T) {
	_, err := parseRSAPublicKey("!!!", "AQAB")
	assert.Error(t, err)
}
