package crypto

import (
	"errors"

	blst "github.com/supranational/blst/bindings/go"
)

// domainTag separates axon's consensus signatures from any other BLS
// scheme sharing the same curve; every vote/proposal/checkpoint
// signature and its verification must use the same tag.
const domainTag = "AXON-CONSENSUS-BLS12381G2_XMD:SHA-256_SSWU_RO_POP_"

// BLSPublicKey is a compressed 48-byte G1 point.
type BLSPublicKey struct {
	p *blst.P1Affine
}

// BLSSignature is a compressed 96-byte G2 point.
type BLSSignature struct {
	s *blst.P2Affine
}

// BLSPrivateKey is a BLS12-381 scalar used to sign votes and checkpoints.
type BLSPrivateKey struct {
	sk *blst.SecretKey
}

// GenerateBLSKey derives a BLS private key from 32 bytes of secret key
// material (ikm). ikm must have at least 32 bytes of entropy.
func GenerateBLSKey(ikm []byte) (*BLSPrivateKey, error) {
	if len(ikm) < 32 {
		return nil, errors.New("crypto: bls ikm must be at least 32 bytes")
	}
	sk := blst.KeyGen(ikm)
	if sk == nil {
		return nil, errors.New("crypto: bls key generation failed")
	}
	return &BLSPrivateKey{sk: sk}, nil
}

// Public returns the public key corresponding to sk.
func (sk *BLSPrivateKey) Public() *BLSPublicKey {
	return &BLSPublicKey{p: new(blst.P1Affine).From(sk.sk)}
}

// Sign produces a BLS signature over msg under axon's domain tag.
func (sk *BLSPrivateKey) Sign(msg []byte) *BLSSignature {
	sig := new(blst.P2Affine).Sign(sk.sk, msg, []byte(domainTag))
	return &BLSSignature{s: sig}
}

// Bytes returns the compressed 48-byte encoding of the public key.
func (pk *BLSPublicKey) Bytes() []byte { return pk.p.Compress() }

// BLSPublicKeyFromBytes decodes a compressed 48-byte G1 point.
func BLSPublicKeyFromBytes(b []byte) (*BLSPublicKey, error) {
	p := new(blst.P1Affine).Uncompress(b)
	if p == nil || !p.KeyValidate() {
		return nil, errors.New("crypto: invalid bls public key encoding")
	}
	return &BLSPublicKey{p: p}, nil
}

// Bytes returns the compressed 96-byte encoding of the signature.
func (sig *BLSSignature) Bytes() []byte { return sig.s.Compress() }

// BLSSignatureFromBytes decodes a compressed 96-byte G2 point.
func BLSSignatureFromBytes(b []byte) (*BLSSignature, error) {
	s := new(blst.P2Affine).Uncompress(b)
	if s == nil {
		return nil, errors.New("crypto: invalid bls signature encoding")
	}
	return &BLSSignature{s: s}, nil
}

// AggregateBLSSignatures combines a set of signatures over the same
// message into a single aggregate signature, as required to form a
// Proof/QC from individual precommit votes.
func AggregateBLSSignatures(sigs []*BLSSignature) (*BLSSignature, error) {
	if len(sigs) == 0 {
		return nil, errors.New("crypto: cannot aggregate zero signatures")
	}
	raw := make([]*blst.P2Affine, len(sigs))
	for i, s := range sigs {
		raw[i] = s.s
	}
	agg := new(blst.P2Aggregate)
	if !agg.Aggregate(raw, true) {
		return nil, errors.New("crypto: bls signature aggregation failed")
	}
	return &BLSSignature{s: agg.ToAffine()}, nil
}

// AggregateBLSPublicKeys combines the contributing validators' public
// keys into the key that verifies an aggregated signature.
func AggregateBLSPublicKeys(pubs []*BLSPublicKey) (*BLSPublicKey, error) {
	if len(pubs) == 0 {
		return nil, errors.New("crypto: cannot aggregate zero public keys")
	}
	raw := make([]*blst.P1Affine, len(pubs))
	for i, p := range pubs {
		raw[i] = p.p
	}
	agg := new(blst.P1Aggregate)
	if !agg.Aggregate(raw, true) {
		return nil, errors.New("crypto: bls public key aggregation failed")
	}
	return &BLSPublicKey{p: agg.ToAffine()}, nil
}

// VerifyAggregate checks that sig is a valid aggregate signature by the
// holders of pubs, all signing the same msg — the shape of an Overlord
// precommit QC, where every contributor signs Keccak(RLP(Vote{...})).
func VerifyAggregate(pubs []*BLSPublicKey, msg []byte, sig *BLSSignature) bool {
	if len(pubs) == 0 {
		return false
	}
	raw := make([]*blst.P1Affine, len(pubs))
	for i, p := range pubs {
		raw[i] = p.p
	}
	return sig.s.FastAggregateVerify(true, raw, msg, []byte(domainTag))
}

// Verify checks a single-signer BLS signature.
func Verify(pub *BLSPublicKey, msg []byte, sig *BLSSignature) bool {
	return sig.s.Verify(true, pub.p, true, msg, []byte(domainTag))
}
