package stores

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const challengeRecordVersionV1 = 1

// ChallengeRecord binds a hashed secret to one account and one target email.
// It backs both ownership proofs and OTP challenges.
type ChallengeRecord struct {
	AccountID  string
	Email      string
	SecretHash string
}

func encodeChallengeRecord(record *ChallengeRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersionV1)
	for _, field := range []string{record.AccountID, record.Email, record.SecretHash} {
		if len(field) > 65535 {
			return nil, errors.New("challenge record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}
	return buf.Bytes(), nil
}

func decodeChallengeRecord(data []byte) (*ChallengeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersionV1 {
		return nil, errors.New("invalid challenge record version")
	}

	fields := make([]string, 3)
	for i := range fields {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		raw := make([]byte, n)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		fields[i] = string(raw)
	}

	return &ChallengeRecord{
		AccountID:  fields[0],
		Email:      fields[1],
		SecretHash: fields[2],
	}, nil
}
