package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// WitnessScope delimita o alcance da autorização concedida pela assinatura.
type WitnessScope byte

const (
	// ScopeCalledByEntry restringe a assinatura ao script de entrada.
	ScopeCalledByEntry WitnessScope = 0x01
	// ScopeGlobal autoriza qualquer chamada de contrato feita pela conta.
	// É o escopo usado pelo deployment observado.
	ScopeGlobal WitnessScope = 0x80
)

func (s WitnessScope) String() string {
	switch s {
	case ScopeGlobal:
		return "Global"
	case ScopeCalledByEntry:
		return "CalledByEntry"
	default:
		return fmt.Sprintf("WitnessScope(%#x)", byte(s))
	}
}

// Signer vincula uma conta (por script hash) e o escopo da autorização.
type Signer struct {
	Account Uint160
	Scope   WitnessScope
}

// Witness carrega a assinatura (invocation) e o script de verificação.
type Witness struct {
	Invocation   []byte
	Verification []byte
}

// Transaction é uma transação de invocação de contrato. Os campos são
// preenchidos em ordem fixa pelo construtor de apostas: script, expiração,
// signers, taxas e por último a witness.
type Transaction struct {
	Version         byte
	Nonce           uint32
	SystemFee       int64
	NetworkFee      int64
	ValidUntilBlock uint32
	Signers         []Signer
	Script          []byte
	Witnesses       []Witness
}

// AddSigner anexa um signer. A transação de aposta carrega exatamente um.
func (t *Transaction) AddSigner(s Signer) error {
	for _, existing := range t.Signers {
		if existing.Account == s.Account {
			return errors.New("duplicate signer account")
		}
	}
	t.Signers = append(t.Signers, s)
	return nil
}

func (t *Transaction) serializeUnsigned(w *bytes.Buffer) error {
	if len(t.Script) == 0 {
		return errors.New("transaction has no script")
	}
	if len(t.Signers) == 0 {
		return errors.New("transaction has no signers")
	}
	w.WriteByte(t.Version)
	writeUint32(w, t.Nonce)
	writeInt64(w, t.SystemFee)
	writeInt64(w, t.NetworkFee)
	writeUint32(w, t.ValidUntilBlock)
	writeVarInt(w, uint64(len(t.Signers)))
	for _, s := range t.Signers {
		w.Write(s.Account.BytesLE())
		w.WriteByte(byte(s.Scope))
	}
	writeVarInt(w, 0) // atributos
	writeVarBytes(w, t.Script)
	return nil
}

// UnsignedBytes serializa o corpo coberto pela assinatura.
func (t *Transaction) UnsignedBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.serializeUnsigned(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Bytes serializa a transação completa, incluindo witnesses.
func (t *Transaction) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.serializeUnsigned(&buf); err != nil {
		return nil, err
	}
	writeVarInt(&buf, uint64(len(t.Witnesses)))
	for _, wit := range t.Witnesses {
		writeVarBytes(&buf, wit.Invocation)
		writeVarBytes(&buf, wit.Verification)
	}
	return buf.Bytes(), nil
}

// Hash é o SHA-256 do corpo sem witnesses.
func (t *Transaction) Hash() ([32]byte, error) {
	unsigned, err := t.UnsignedBytes()
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(unsigned), nil
}

// TxID apresenta o hash em hex invertido, como exibido pelos exploradores.
func (t *Transaction) TxID() (string, error) {
	h, err := t.Hash()
	if err != nil {
		return "", err
	}
	for i, j := 0, len(h)-1; i < j; i, j = i+1, j-1 {
		h[i], h[j] = h[j], h[i]
	}
	return "0x" + hex.EncodeToString(h[:]), nil
}

// SignData prefixa o hash com o network magic: a assinatura só vale na
// rede configurada.
func (t *Transaction) SignData(magic uint32) ([]byte, error) {
	h, err := t.Hash()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 4, 4+len(h))
	binary.LittleEndian.PutUint32(out, magic)
	return append(out, h[:]...), nil
}

// Sign assina a transação totalmente montada e anexa a witness única.
// Deve ser o penúltimo passo: qualquer mutação posterior invalida a
// assinatura (somente o broadcast vem depois).
func (t *Transaction) Sign(acc *Account, magic uint32) error {
	if acc == nil {
		return errors.New("signing account is required")
	}
	data, err := t.SignData(magic)
	if err != nil {
		return err
	}
	sig := acc.Sign(data)
	inv := NewScriptBuilder()
	inv.EmitPushBytes(sig)
	t.Witnesses = []Witness{{
		Invocation:   inv.Bytes(),
		Verification: acc.VerificationScript,
	}}
	return nil
}

// --- serialização little-endian ---

func writeUint32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeInt64(w *bytes.Buffer, v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.Write(b[:])
}

func writeVarInt(w *bytes.Buffer, v uint64) {
	switch {
	case v < 0xFD:
		w.WriteByte(byte(v))
	case v <= 0xFFFF:
		w.WriteByte(0xFD)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		w.Write(b[:])
	case v <= 0xFFFFFFFF:
		w.WriteByte(0xFE)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v))
		w.Write(b[:])
	default:
		w.WriteByte(0xFF)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		w.Write(b[:])
	}
}

func writeVarBytes(w *bytes.Buffer, b []byte) {
	writeVarInt(w, uint64(len(b)))
	w.Write(b)
}
