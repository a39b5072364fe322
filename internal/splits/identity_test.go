package splits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCardIdentity(t *testing.T) {
	tests := []struct {
		name    string
		stem    string
		want    CardIdentity
		wantErr bool
	}{
		{
			name: "front scan",
			stem: "RG123456789-+12345678-+front_laser",
			want: CardIdentity{OrderID: "RG123456789", CertificateID: "12345678", Orientation: Front},
		},
		{
			name: "back scan",
			stem: "RG123456789-+12345678-+back_laser",
			want: CardIdentity{OrderID: "RG123456789", CertificateID: "12345678", Orientation: Back},
		},
		{
			name: "order id with part suffix",
			stem: "RG123456789_part4-+12345678-+back_laser",
			want: CardIdentity{OrderID: "RG123456789", CertificateID: "12345678", Orientation: Back},
		},
		{
			name: "zero padded certificate",
			stem: "RG123456789-+00000005-+front_laser",
			want: CardIdentity{OrderID: "RG123456789", CertificateID: "00000005", Orientation: Front},
		},
		{
			name:    "invalid orientation",
			stem:    "RG123456789-+12345678-+invalid_orientation.png",
			wantErr: true,
		},
		{
			name:    "certificate too short",
			stem:    "RG123456789-+1234567-+front_laser",
			wantErr: true,
		},
		{
			name:    "certificate too long",
			stem:    "RG123456789-+123456789-+front_laser",
			wantErr: true,
		},
		{
			name:    "certificate not numeric",
			stem:    "RG123456789-+134invalid-+front_laser",
			wantErr: true,
		},
		{
			name:    "order id too short",
			stem:    "RG12345678-+12345678-+front_laser",
			wantErr: true,
		},
		{
			name:    "order id too long",
			stem:    "RG1234567890-+12345678-+front_laser",
			wantErr: true,
		},
		{
			name:    "letter inside order id",
			stem:    "RGa123456789-+12345678-+front_laser",
			wantErr: true,
		},
		{
			name:    "letter inside short order id",
			stem:    "RGa12345678-+12345678-+front_laser",
			wantErr: true,
		},
		{
			name:    "empty stem",
			stem:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := ExtractCardIdentity(tt.stem)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedStem)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, identity)
		})
	}
}
