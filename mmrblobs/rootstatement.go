package mmrblobs

import (
	dtcbor "github.com/datatrails/go-datatrails-common/cbor"
	dtcose "github.com/datatrails/go-datatrails-common/cose"
)

// DecodeSignedRoot parses a COSE_Sign1 message produced by RootSigner.Sign1
// and decodes its payload into an MMRState.
//
// The returned state's Root is always nil: Sign1 signs the payload with the
// root present, then strips it before transmission, so the signature only
// verifies again once a caller re-attaches the correct root (recomputed
// independently, e.g. from the bundle's proof/leaf streams) via
// VerifySignedRoot.
func DecodeSignedRoot(codec dtcbor.CBORCodec, coseMessage []byte) (*dtcose.CoseSign1Message, MMRState, error) {
	signed := &dtcose.CoseSign1Message{}
	if err := signed.UnmarshalCBOR(coseMessage); err != nil {
		return nil, MMRState{}, err
	}
	var state MMRState
	if err := codec.UnmarshalCBOR(signed.Payload, &state); err != nil {
		return nil, MMRState{}, err
	}
	return signed, state, nil
}

// VerifySignedRoot re-attaches state.Root to signed's payload and checks the
// COSE_Sign1 signature against the reconstituted payload, using the log
// operator's public key obtained from keyProvider's CWT confirmation claim.
//
// A state whose Root does not match the one originally signed (including a
// nil Root that was never filled in) fails verification, because the
// signature covers the payload with Root present.
func VerifySignedRoot(
	codec dtcbor.CBORCodec,
	keyProvider dtcose.PublicKeyProvider,
	signed *dtcose.CoseSign1Message,
	state MMRState,
	external []byte,
) error {
	payload, err := codec.MarshalCBOR(state)
	if err != nil {
		return err
	}

	attached := *signed
	attached.Payload = payload

	verifier, err := dtcose.NewVerifier(keyProvider, &attached)
	if err != nil {
		return err
	}
	return attached.Verify(external, verifier)
}
