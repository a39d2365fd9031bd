package entity

// DirectoryEntry is the contactable snapshot of a user at user/{userId}.
type DirectoryEntry struct {
	UserID     string `json:"userId" firestore:"-"`
	FCMToken   string `json:"fcmToken" firestore:"fcmToken"`
	Name       string `json:"name" firestore:"name"`
	Online     bool   `json:"online" firestore:"online"`
	LastOnline int64  `json:"lastOnline" firestore:"lastOnline"`
	Image      string `json:"image" firestore:"image"`
}

// ParseDirectoryEntry decodes a user record. Fields that are present with an
// unexpected type make the record malformed; absent fields default.
func ParseDirectoryEntry(userID string, fields map[string]interface{}) (*DirectoryEntry, bool) {
	if fields == nil {
		return nil, false
	}
	entry := &DirectoryEntry{UserID: userID}

	var ok bool
	if v, present := fields["fcmToken"]; present && v != nil {
		if entry.FCMToken, ok = v.(string); !ok {
			return nil, false
		}
	}
	if v, present := fields["name"]; present && v != nil {
		if entry.Name, ok = v.(string); !ok {
			return nil, false
		}
	}
	if v, present := fields["image"]; present && v != nil {
		if entry.Image, ok = v.(string); !ok {
			return nil, false
		}
	}
	if v, present := fields["online"]; present && v != nil {
		if entry.Online, ok = v.(bool); !ok {
			return nil, false
		}
	}
	if v, present := fields["lastOnline"]; present && v != nil {
		if entry.LastOnline, ok = AsInt64(v); !ok {
			return nil, false
		}
	}
	return entry, true
}
