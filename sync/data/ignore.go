package data

import (
	"github.com/hearthchat/hearth/lib/oplog"
)

// IgnoreList is the ignore-list service: per-user sets of authors whose
// ephemeral data (read receipts) must not be delivered to them.
type IgnoreList struct {
	log oplog.ILog
}

// Ignore adds target to the user's ignore list.
func (i *IgnoreList) Ignore(userID, target string) error {
	_, err := i.log.Put(ignorePrefix+userID+"/"+target, []byte("1"))
	return err
}

// Unignore removes target from the user's ignore list.
func (i *IgnoreList) Unignore(userID, target string) error {
	return i.log.Delete(ignorePrefix + userID + "/" + target)
}

// IsIgnored reports whether reader has author on their ignore list.
// Lookup failures degrade to "not ignored"; the receipt in question is
// then delivered, which is the safer failure mode for ephemeral data.
func (i *IgnoreList) IsIgnored(reader, author string) bool {
	_, loaded, err := getRetry(i.log, ignorePrefix+reader+"/"+author)
	if err != nil {
		log.Warningf("ignore lookup for %s/%s failed: %v", reader, author, err)
		return false
	}
	return loaded
}
