package adapter

import "strings"

// Voice preferences
const (
	VoiceFemale = "female"
	VoiceMale   = "male"
)

type voicePair struct {
	Female string
	Male   string
}

// voiceTable maps a BCP-47 language tag to Azure neural voices
var voiceTable = map[string]voicePair{
	"en-US":  {Female: "en-US-JennyNeural", Male: "en-US-GuyNeural"},
	"en-GB":  {Female: "en-GB-SoniaNeural", Male: "en-GB-RyanNeural"},
	"km-KH":  {Female: "km-KH-SreymomNeural", Male: "km-KH-PisethNeural"},
	"th-TH":  {Female: "th-TH-PremwadeeNeural", Male: "th-TH-NiwatNeural"},
	"vi-VN":  {Female: "vi-VN-HoaiMyNeural", Male: "vi-VN-NamMinhNeural"},
	"lo-LA":  {Female: "lo-LA-KeomanyNeural", Male: "lo-LA-ChanthavongNeural"},
	"my-MM":  {Female: "my-MM-NilarNeural", Male: "my-MM-ThihaNeural"},
	"ms-MY":  {Female: "ms-MY-YasminNeural", Male: "ms-MY-OsmanNeural"},
	"id-ID":  {Female: "id-ID-GadisNeural", Male: "id-ID-ArdiNeural"},
	"fil-PH": {Female: "fil-PH-BlessicaNeural", Male: "fil-PH-AngeloNeural"},
	"zh-CN":  {Female: "zh-CN-XiaoxiaoNeural", Male: "zh-CN-YunxiNeural"},
	"zh-TW":  {Female: "zh-TW-HsiaoChenNeural", Male: "zh-TW-YunJheNeural"},
	"ja-JP":  {Female: "ja-JP-NanamiNeural", Male: "ja-JP-KeitaNeural"},
	"ko-KR":  {Female: "ko-KR-SunHiNeural", Male: "ko-KR-InJoonNeural"},
	"fr-FR":  {Female: "fr-FR-DeniseNeural", Male: "fr-FR-HenriNeural"},
	"de-DE":  {Female: "de-DE-KatjaNeural", Male: "de-DE-ConradNeural"},
	"es-ES":  {Female: "es-ES-ElviraNeural", Male: "es-ES-AlvaroNeural"},
	"it-IT":  {Female: "it-IT-ElsaNeural", Male: "it-IT-DiegoNeural"},
	"pt-BR":  {Female: "pt-BR-FranciscaNeural", Male: "pt-BR-AntonioNeural"},
	"ru-RU":  {Female: "ru-RU-SvetlanaNeural", Male: "ru-RU-DmitryNeural"},
	"ar-SA":  {Female: "ar-SA-ZariyahNeural", Male: "ar-SA-HamedNeural"},
	"hi-IN":  {Female: "hi-IN-SwaraNeural", Male: "hi-IN-MadhurNeural"},
}

// LookupVoice returns the voice for tag and preference. ok is false when the
// tag is unmapped and the provider default for the tag should be used.
func LookupVoice(tag, preference string) (voice string, ok bool) {
	pair, found := voiceTable[canonicalTag(tag)]
	if !found {
		return "", false
	}
	if strings.EqualFold(preference, VoiceMale) {
		return pair.Male, true
	}
	return pair.Female, true
}

// canonicalTag normalizes "en_us" or "EN-us" to "en-US"
func canonicalTag(tag string) string {
	parts := strings.Split(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"), "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) > 1 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

func validTag(tag string) bool {
	if tag == "" || len(tag) > 35 {
		return false
	}
	for _, r := range tag {
		if !(r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
