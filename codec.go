package wwise

// Output extensions for package entries.
const (
	BankExt = "bnk"
	WavExt  = "wav"
	XMAExt  = "xma"
	OggExt  = "ogg"
)

// legacyBankVersion is the first bank version whose sounds are all .wem;
// older packages are sniffed per entry.
const legacyBankVersion = 62

// codecTagOffset is where the format tag of a legacy sound's RIFF fmt chunk
// sits relative to the entry start.
const codecTagOffset = 0x14

// legacySoundExt guesses the extension of a pre-wem sound from its format
// tag.
func legacySoundExt(tag uint16) string {
	switch tag {
	case 0x0401, 0x0166: // 0x0401 is the old XMA marker, not a real codec
		return XMAExt
	case 0xFFFF:
		return OggExt
	default: // PCM, PCMEX, ADPCM, WIIADPCM
		return WavExt
	}
}

// SoundExt returns the extension for a sound entry: .wem from bank version
// 62 on, otherwise sniffed from the two bytes at offset+0x14 of src.
func SoundExt(src *Cursor, offset int64, bankVersion uint32) (string, error) {
	if bankVersion >= legacyBankVersion {
		return WemExt, nil
	}

	tag, err := src.Uint16At(offset + codecTagOffset)
	if err != nil {
		return "", err
	}

	return legacySoundExt(tag), nil
}
