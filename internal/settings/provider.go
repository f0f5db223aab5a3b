package settings

// Keys understood by Provider. Absent keys read as "" or false.
const (
	KeyEmail                  = "email"
	KeyAuth                   = "auth"
	KeyTextureCompression     = "textureCompression"
	KeyWithSymbols            = "withSymbols"
	KeyLiveUpdate             = "liveUpdate"
	KeyAndroidKeystore        = "android.keystore"
	KeyAndroidKeystorePass    = "android.keystorePass"
	KeyAndroidKeystoreAlias   = "android.keystoreAlias"
	KeyAndroidBundleFormat    = "android.bundleFormat"
	KeyIOSIdentity            = "ios.identity"
	KeyIOSProvisioningProfile = "ios.mobileProvisioningProfilePath"
)

// Provider is a read-only typed key/value view of user settings.
type Provider interface {
	String(key string) string
	Bool(key string) bool
}

// Map is a Provider backed by plain values, mostly useful in tests.
type Map map[string]any

// String returns the string stored under key, or "".
func (m Map) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Bool returns the bool stored under key, or false.
func (m Map) Bool(key string) bool {
	b, _ := m[key].(bool)
	return b
}
