package storage

// Setting keys. Values are JSON encoded.
const (
	KeyHotkeyMain           = "customHotkeyMain"
	KeyHotkeySnippet        = "customHotkeySnippet"
	KeyHotkeyHistory        = "customHotkeyHistory"
	KeyUserName             = "userName"
	KeyMasterSnippetURL     = "masterSnippetUrl"
	KeyMasterSnippets       = "masterSnippets"
	KeyLastSync             = "lastSync"
	KeyPersonalFolders      = "personalFolders"
	KeyPersonalSnippets     = "personalSnippets"
	KeyClipboardHistory     = "clipboardHistory"
	KeyPinnedItems          = "pinnedItems"
	KeyWindowPositionMode   = "windowPositionMode"
	KeyHiddenFolders        = "hiddenFolders"
	KeyPermissionGuideShown = "permissionGuideShown"
)
