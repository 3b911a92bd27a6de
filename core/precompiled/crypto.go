package precompiled

import (
	"crypto/sha256"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // EIP-2/EIP-198 fixed precompile, not a protocol choice
	"golang.org/x/crypto/sha3"

	"github.com/morebtcg/bcos-executor-sub001/common"
)

// Built-in crypto precompiles at fixed NATIVE addresses 0x01-0x09
// (spec.md §6). Each is a CryptoPrecompile (a Precompiled) with no gas
// schedule of its own: Registry.Invoke prices it through the GasPricer it
// is given. They are registered directly (not via newEntry/newCondition)
// since they take raw byte input rather than registry-addressed arguments.

// CryptoPrecompile wraps a pure function (input []byte) -> (output []byte,
// err error) as a registry Object.
type CryptoPrecompile struct {
	run func(input []byte) ([]byte, error)
}

func (c *CryptoPrecompile) Kind() Kind { return KindCrypto }

func (c *CryptoPrecompile) Call(args CallArgs) (CallResult, error) {
	input := append(append([]byte{}, args.Selector[:]...), args.Rest...)
	out, err := c.run(input)
	if err != nil {
		return CallResult{}, err
	}
	return CallResult{Values: []string{common.Bytes2Hex(out)}}, nil
}

// RegisterBuiltins binds the nine fixed crypto precompiles to addresses
// 0x01-0x09 on reg.
func RegisterBuiltins(reg *Registry) {
	reg.Register(addr(1), &CryptoPrecompile{run: ecRecoverRun})
	reg.Register(addr(2), &CryptoPrecompile{run: sha256Run})
	reg.Register(addr(3), &CryptoPrecompile{run: ripemd160Run})
	reg.Register(addr(4), &CryptoPrecompile{run: identityRun})
	reg.Register(addr(5), &CryptoPrecompile{run: modexpRun})
	reg.Register(addr(6), &CryptoPrecompile{run: bn254AddRun})
	reg.Register(addr(7), &CryptoPrecompile{run: bn254MulRun})
	reg.Register(addr(8), &CryptoPrecompile{run: bn254PairingRun})
	reg.Register(addr(9), &CryptoPrecompile{run: blake2FRun})
}

func addr(n byte) common.Identity {
	var a common.Address
	a[common.AddressLength-1] = n
	return common.NativeIdentity(a)
}

// --- 0x01 ecRecover ---

func ecRecoverRun(input []byte) ([]byte, error) {
	const inputLen = 128
	padded := make([]byte, inputLen)
	copy(padded, input)

	hash := padded[:32]
	v := padded[63]
	r := new(big.Int).SetBytes(padded[64:96])
	s := new(big.Int).SetBytes(padded[96:128])

	if v != 27 && v != 28 {
		return nil, nil
	}
	if !validateSignatureValues(r, s) {
		return nil, nil
	}

	compact := make([]byte, 65)
	compact[0] = v - 27 + 27
	copy(compact[1:], padded[64:128])

	pub, _, err := ecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, nil
	}
	pk := pub.SerializeUncompressed()
	digest := keccak(pk[1:])
	out := make([]byte, 32)
	copy(out[12:], digest[12:])
	return out, nil
}

func validateSignatureValues(r, s *big.Int) bool {
	if r.Sign() <= 0 || s.Sign() <= 0 {
		return false
	}
	n := btcec.S256().N
	return r.Cmp(n) < 0 && s.Cmp(n) < 0
}

func keccak(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// --- 0x02 sha256 ---

func sha256Run(input []byte) ([]byte, error) {
	sum := sha256.Sum256(input)
	return sum[:], nil
}

// --- 0x03 ripemd160, left-padded to 32 bytes (EVM convention) ---

func ripemd160Run(input []byte) ([]byte, error) {
	h := ripemd160.New()
	h.Write(input)
	return common.PaddedTo32(h.Sum(nil)), nil
}

// --- 0x04 identity ---

func identityRun(input []byte) ([]byte, error) {
	out := make([]byte, len(input))
	copy(out, input)
	return out, nil
}

// --- 0x05 modexp, EIP-198 ---

func modexpRun(input []byte) ([]byte, error) {
	padded := rightPad(input, 96)
	baseLen := new(big.Int).SetBytes(padded[0:32]).Uint64()
	expLen := new(big.Int).SetBytes(padded[32:64]).Uint64()
	modLen := new(big.Int).SetBytes(padded[64:96]).Uint64()

	if baseLen == 0 && modLen == 0 {
		return []byte{}, nil
	}

	rest := input
	if len(rest) > 96 {
		rest = rest[96:]
	} else {
		rest = nil
	}
	rest = rightPad(rest, baseLen+expLen+modLen)

	base := new(big.Int).SetBytes(rest[0:baseLen])
	exp := new(big.Int).SetBytes(rest[baseLen : baseLen+expLen])
	mod := new(big.Int).SetBytes(rest[baseLen+expLen : baseLen+expLen+modLen])

	var result *big.Int
	if mod.Sign() == 0 {
		result = new(big.Int)
	} else {
		result = new(big.Int).Exp(base, exp, mod)
	}

	out := make([]byte, modLen)
	result.FillBytes(out)
	return out, nil
}

func rightPad(b []byte, n uint64) []byte {
	if uint64(len(b)) >= n {
		return b[:n]
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// --- 0x06/0x07/0x08 bn254 (alt_bn128) add/mul/pairing ---

func decodeG1(b []byte) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	var x, y big.Int
	x.SetBytes(b[0:32])
	y.SetBytes(b[32:64])
	if x.Sign() == 0 && y.Sign() == 0 {
		// EIP-196 point-at-infinity encoding.
		return p, nil
	}
	p.X.SetBigInt(&x)
	p.Y.SetBigInt(&y)
	if !p.IsOnCurve() {
		return p, errInvalidCurvePoint
	}
	return p, nil
}

func encodeG1(p bn254.G1Affine) []byte {
	out := make([]byte, 64)
	xb := p.X.Bytes()
	yb := p.Y.Bytes()
	copy(out[32-len(xb):32], xb[:])
	copy(out[64-len(yb):64], yb[:])
	return out
}

var errInvalidCurvePoint = errNamed("INVALID_CURVE_POINT")

func errNamed(s string) error { return &namedError{s} }

type namedError struct{ s string }

func (e *namedError) Error() string { return "precompiled: " + e.s }

func bn254AddRun(input []byte) ([]byte, error) {
	padded := rightPad(input, 128)
	p1, err := decodeG1(padded[0:64])
	if err != nil {
		return nil, err
	}
	p2, err := decodeG1(padded[64:128])
	if err != nil {
		return nil, err
	}
	var result bn254.G1Jac
	result.FromAffine(&p1)
	var p2j bn254.G1Jac
	p2j.FromAffine(&p2)
	result.AddAssign(&p2j)
	var out bn254.G1Affine
	out.FromJacobian(&result)
	return encodeG1(out), nil
}

func bn254MulRun(input []byte) ([]byte, error) {
	padded := rightPad(input, 96)
	p, err := decodeG1(padded[0:64])
	if err != nil {
		return nil, err
	}
	scalar := new(big.Int).SetBytes(padded[64:96])
	var pj bn254.G1Jac
	pj.FromAffine(&p)
	pj.ScalarMultiplication(&pj, scalar)
	var out bn254.G1Affine
	out.FromJacobian(&pj)
	return encodeG1(out), nil
}

func bn254PairingRun(input []byte) ([]byte, error) {
	const pairSize = 192
	if len(input)%pairSize != 0 {
		return nil, errNamed("INVALID_PAIRING_INPUT_LENGTH")
	}
	n := len(input) / pairSize
	g1s := make([]bn254.G1Affine, 0, n)
	g2s := make([]bn254.G2Affine, 0, n)
	for i := 0; i < n; i++ {
		chunk := input[i*pairSize : (i+1)*pairSize]
		p1, err := decodeG1(chunk[0:64])
		if err != nil {
			return nil, err
		}
		var p2 bn254.G2Affine
		var x0, x1, y0, y1 big.Int
		x1.SetBytes(chunk[64:96])
		x0.SetBytes(chunk[96:128])
		y1.SetBytes(chunk[128:160])
		y0.SetBytes(chunk[160:192])
		p2.X.A0.SetBigInt(&x0)
		p2.X.A1.SetBigInt(&x1)
		p2.Y.A0.SetBigInt(&y0)
		p2.Y.A1.SetBigInt(&y1)
		if !p2.IsOnCurve() {
			return nil, errInvalidCurvePoint
		}
		g1s = append(g1s, p1)
		g2s = append(g2s, p2)
	}

	ok, err := bn254.PairingCheck(g1s, g2s)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 32)
	if ok {
		out[31] = 1
	}
	return out, nil
}

// --- 0x09 blake2 compression function, EIP-152 ---

func blake2FRun(input []byte) ([]byte, error) {
	if len(input) != 213 {
		return nil, errNamed("INVALID_BLAKE2F_INPUT_LENGTH")
	}
	if input[212] != 0 && input[212] != 1 {
		return nil, errNamed("INVALID_BLAKE2F_FINAL_FLAG")
	}
	rounds := uint32From(input[0:4])

	var h [8]uint64
	for i := 0; i < 8; i++ {
		h[i] = uint64From(input[4+i*8 : 4+(i+1)*8])
	}
	var m [16]uint64
	for i := 0; i < 16; i++ {
		m[i] = uint64From(input[68+i*8 : 68+(i+1)*8])
	}
	t0 := uint64From(input[196:204])
	t1 := uint64From(input[204:212])
	final := input[212] == 1

	blake2fCompress(&h, &m, t0, t1, final, rounds)

	out := make([]byte, 64)
	for i := 0; i < 8; i++ {
		putUint64(out[i*8:(i+1)*8], h[i])
	}
	return out, nil
}

func uint32From(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func uint64From(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

var blake2Iv = [8]uint64{
	0x6a09e667f3bcc908, 0xbb67ae8584caa73b, 0x3c6ef372fe94f82b, 0xa54ff53a5f1d36f1,
	0x510e527fade682d1, 0x9b05688c2b3e6c1f, 0x1f83d9abfb41bd6b, 0x5be0cd19137e2179,
}

var blake2Sigma = [10][16]byte{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	{14, 10, 4, 8, 9, 15, 13, 6, 1, 12, 0, 2, 11, 7, 5, 3},
	{11, 8, 12, 0, 5, 2, 15, 13, 10, 14, 3, 6, 7, 1, 9, 4},
	{7, 9, 3, 1, 13, 12, 11, 14, 2, 6, 5, 10, 4, 0, 15, 8},
	{9, 0, 5, 7, 2, 4, 10, 15, 14, 1, 11, 12, 6, 8, 3, 13},
	{2, 12, 6, 10, 0, 11, 8, 3, 4, 13, 7, 5, 15, 14, 1, 9},
	{12, 5, 1, 15, 14, 13, 4, 10, 0, 7, 6, 3, 9, 2, 8, 11},
	{13, 11, 7, 14, 12, 1, 3, 9, 5, 0, 15, 4, 8, 6, 2, 10},
	{6, 15, 14, 9, 11, 3, 0, 8, 12, 2, 13, 7, 1, 4, 10, 5},
	{10, 2, 8, 4, 7, 6, 1, 5, 15, 11, 9, 14, 3, 12, 13, 0},
}

func rotr64(x uint64, n uint) uint64 { return x>>n | x<<(64-n) }

// blake2fCompress is the EIP-152 compression primitive F: golang.org/x/
// crypto/blake2b does not export it, so it is reimplemented directly from
// the algorithm's public definition (RFC 7693 §3.2), matching what
// go-ethereum's own crypto/blake2b fork does for the same precompile.
func blake2fCompress(h *[8]uint64, m *[16]uint64, t0, t1 uint64, final bool, rounds uint32) {
	v := [16]uint64{
		h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7],
		blake2Iv[0], blake2Iv[1], blake2Iv[2], blake2Iv[3],
		blake2Iv[4] ^ t0, blake2Iv[5] ^ t1, blake2Iv[6], blake2Iv[7],
	}
	if final {
		v[14] = ^v[14]
	}

	mix := func(a, b, c, d uint64, x, y uint64) (uint64, uint64, uint64, uint64) {
		a = a + b + x
		d = rotr64(d^a, 32)
		c = c + d
		b = rotr64(b^c, 24)
		a = a + b + y
		d = rotr64(d^a, 16)
		c = c + d
		b = rotr64(b^c, 63)
		return a, b, c, d
	}

	for r := uint32(0); r < rounds; r++ {
		s := blake2Sigma[r%10]
		v[0], v[4], v[8], v[12] = mix(v[0], v[4], v[8], v[12], m[s[0]], m[s[1]])
		v[1], v[5], v[9], v[13] = mix(v[1], v[5], v[9], v[13], m[s[2]], m[s[3]])
		v[2], v[6], v[10], v[14] = mix(v[2], v[6], v[10], v[14], m[s[4]], m[s[5]])
		v[3], v[7], v[11], v[15] = mix(v[3], v[7], v[11], v[15], m[s[6]], m[s[7]])
		v[0], v[5], v[10], v[15] = mix(v[0], v[5], v[10], v[15], m[s[8]], m[s[9]])
		v[1], v[6], v[11], v[12] = mix(v[1], v[6], v[11], v[12], m[s[10]], m[s[11]])
		v[2], v[7], v[8], v[13] = mix(v[2], v[7], v[8], v[13], m[s[12]], m[s[13]])
		v[3], v[4], v[9], v[14] = mix(v[3], v[4], v[9], v[14], m[s[14]], m[s[15]])
	}

	for i := 0; i < 8; i++ {
		h[i] ^= v[i] ^ v[i+8]
	}
}
