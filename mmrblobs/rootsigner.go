package mmrblobs

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"

	dtcbor "github.com/datatrails/go-datatrails-common/cbor"
	dtcose "github.com/datatrails/go-datatrails-common/cose"
	"github.com/ldclabs/cose/go/cwt"
	"github.com/veraison/go-cose"
)

var (
	ErrCurveNotSupported = errors.New("curve not supported")
)

// MMRState is the payload a bundle's signed root statement (spec §3.1)
// carries inside its COSE_Sign1 envelope: the mmrSize a root was computed
// at, the root itself, and when it was signed. A state's Root is only
// present while RootSigner.Sign1 is actually signing it; DecodeSignedRoot
// always hands callers one with Root nil, so a verifier is forced to
// recompute the root itself from the bundle's proof/leaf streams (or a
// larger mmrSize's log) rather than trust whatever bytes arrived alongside
// the signature.
type MMRState struct {
	MMRSize uint64 `cbor:"1,keyasint"`
	Root    []byte `cbor:"2,keyasint"`
	// Timestamp is the unix time read at the time the root was signed.
	// Including it allows for the same root to be re-signed.
	Timestamp int64 `cbor:"3,keyasint"`
}

// RootSigner produces the signed root statement a bundle carries alongside
// its proof/leaf streams (spec §3.1), using the operator's EC key material.
type RootSigner struct {
	cborCodec   dtcbor.CBORCodec
	coseHeaders cose.Headers
	coseSigner  cose.Signer
}

// RootSignerConfig names the operator identity embedded in a signed root's
// CWT confirmation claim, so a verifier can find the public key that should
// have produced the signature.
type RootSignerConfig struct {
	Issuer        string
	Subject       string
	KeyIdentifier string
}

// NewRootSignerForECPrivateKey builds a RootSigner that signs bundle root
// statements with key, tagging each signature with cfg's operator identity.
func NewRootSignerForECPrivateKey(
	cfg RootSignerConfig, key ecdsa.PrivateKey) (RootSigner, error) {

	alg, err := CoseAlgForEC(key.PublicKey)
	if err != nil {
		return RootSigner{}, nil
	}

	cnfClaim := NewCNFClaim(cfg.Issuer, cfg.Subject, cfg.KeyIdentifier, alg, key.PublicKey)

	codec, err := NewRootSignerCodec()
	if err != nil {
		return RootSigner{}, nil
	}

	signer, err := cose.NewSigner(alg, &key)
	if err != nil {
		return RootSigner{}, nil
	}

	rs := RootSigner{
		cborCodec: codec,
		coseHeaders: cose.Headers{
			Protected: cose.ProtectedHeader{
				dtcose.HeaderLabelCWTClaims: cnfClaim,
			},
		},
		coseSigner: signer,
	}
	return rs, nil
}

// Sign1 produces the COSE_Sign1 bytes stored as a bundle's SignedRoot
// section (spec §3.1, §3.3). It signs the payload once with state.Root
// present, then detaches the root and re-marshals the payload before
// returning — the signature authenticates a state that includes the root,
// but the bytes actually shipped never do, so DecodeSignedRoot/
// VerifySignedRoot is the only way to check a root against it.
func (rs RootSigner) Sign1(state MMRState, external []byte) ([]byte, error) {
	payload, err := rs.cborCodec.MarshalCBOR(state)
	if err != nil {
		return nil, err
	}

	msg := cose.Sign1Message{
		Headers: rs.coseHeaders,
		Payload: payload,
	}
	err = msg.Sign(rand.Reader, external, rs.coseSigner)
	if err != nil {
		return nil, err
	}

	// We purposefully detach the root so that verifiers are forced to obtain it
	// from the log.
	state.Root = nil
	payload, err = rs.cborCodec.MarshalCBOR(state)
	if err != nil {
		return nil, err
	}
	msg.Payload = payload

	return msg.MarshalCBOR()
}

// CoseAlgForEC returns the appropraite algorithm for the provided public
// key curve or an error if the curve is not supported
//
// Noting that: "In order to promote interoperability, it is suggested that
// SHA-256 be used only with curve P-256, SHA-384 be used only with curve P-384,
// and SHA-512 be used with curve P-521." -- rfc 8152 & sec 4, 5480
func CoseAlgForEC(pub ecdsa.PublicKey) (cose.Algorithm, error) {

	switch pub.Curve.Params().Name {
	case "P-256":
		return cose.AlgorithmES256, nil
	case "P-384":
		return cose.AlgorithmES384, nil
	case "P-521":
		return cose.AlgorithmES512, nil
	default:
		return 0, fmt.Errorf("%s: %w", pub.Curve.Params().Name, ErrCurveNotSupported)
	}
}

func NewCNFClaim(
	issuer string, subject string, kid string, alg cose.Algorithm,
	pub ecdsa.PublicKey) map[int64]interface{} {

	claim := map[int64]interface{}{
		dtcose.CoseKeyLabel: map[int64]interface{}{
			dtcose.KeyIDLabel: kid,
			// XXX: TODO: we perversly use the wrong name in go-datatrails-common in order to use jwk / json. We need to change that, at least so that EC2 is accepted and returned in the cose context
			dtcose.KeyTypeLabel:   "EC", // EC2 is correct for rfc8152
			dtcose.AlgorithmLabel: alg,
			dtcose.ECCurveLabel:   pub.Curve.Params().Name,
			dtcose.ECXLabel:       pub.X.Bytes(),
			dtcose.ECYLabel:       pub.Y.Bytes(),
		},
	}
	return map[int64]interface{}{
		int64(cwt.KeyIss): issuer,
		int64(cwt.KeySub): subject,
		dtcose.CNFLabel:   claim,
	}
}

// NewRootSignerCodec builds the deterministic CBOR codec both RootSigner.Sign1
// and DecodeSignedRoot/VerifySignedRoot must share: the signature covers the
// exact bytes this codec produces, so a verifier using a different encoding
// (even one that is semantically equivalent CBOR) would see every signature
// as invalid.
func NewRootSignerCodec() (dtcbor.CBORCodec, error) {
	codec, err := dtcbor.NewCBORCodec(
		dtcbor.NewDeterministicEncOpts(),
		dtcbor.NewDeterministicDecOpts(), // unsigned int decodes to uint64
	)
	if err != nil {
		return dtcbor.CBORCodec{}, err
	}
	return codec, nil
}

func newDecOptions() []dtcose.SignOption {
	return []dtcose.SignOption{dtcose.WithDecOptions(dtcbor.NewDeterministicDecOpts())}
}
