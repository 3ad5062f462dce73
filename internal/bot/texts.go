package bot

import (
	"fmt"
	"time"
)

// Reply keyboard labels.
const (
	BtnMyPlaylists = "🎧 My Playlists"
	BtnNewPlaylist = "➕ New Playlist"
)

const (
	msgWelcome          = "Welcome to Playlist Bot! Choose an option:"
	msgUnknownStartLink = "Unknown start link, so ... Welcome to Playlist Bot! Choose an option:"
	msgBadShareLink     = "Thought it was playlist link but got invalid playlist link. Choose an option to interact with bot:"
	msgShareMissing     = "❌ Invalid share link, requested playlist does not exist."
	msgShareEmpty       = "Playlist is empty or not found."
	msgCoverCaption     = "🎵 Playlist Cover"

	msgAskNewName      = "Enter the name for your new playlist:"
	msgAskAddTarget    = "📝 Send the name of the playlist to add tracks to."
	msgAskShowTarget   = "📋 Send the name of the playlist to show."
	msgAskShareTarget  = "🔗 Send the name of the playlist to share."
	msgAskCoverTarget  = "🖼️ Send the name of the playlist to set a cover for."
	msgAskRenameTarget = "⌨ Send the name of the playlist to rename."
	msgChooseRemove    = "☠️ Choose a playlist to remove a track from:"
	msgChooseDelete    = "☠️ Choose a playlist to delete:"

	msgNoPlaylists   = "❌ No playlists yet. Use `➕ New Playlist` button to add one."
	msgYourPlaylists = "🎧 Your playlists"
	msgNoActive      = "🤷 No active command. Use the menu below or /help."
	msgTextExpected  = "❌ Please send the answer as a text message."
	msgInternal      = "⚠️ Something went wrong. Please try again."
	msgNoSession     = "❌ No active playlist session. Use /add <playlist> first."
	msgNoAddToFinish = "❌ No active add session."
	msgNothingCancel = "Nothing to cancel."
	msgCancelled     = "❌ Cancelled."
	msgNoPending     = "❌ Nothing to confirm. Start the deletion again."
	msgDeleteExpired = "⏰ Confirmation expired. Start the deletion again."
	msgDeleteCancel  = "❌ Deletion canceled."
	msgPhotoExpected = "❌ Please send photo, Can't set this message as cover photo"
	msgEmptyName     = "❌ Please provide a valid playlist name."
	msgBadName       = "❌ Playlist name can't start with '/'."
	msgBadIndex      = "❌ Track index must be one of the numbers shown by 📋 Show Musics."
	msgBadShare      = "❌ Invalid share link."

	msgUsageRemove = "❌ Usage: /remove <playlist> <index>"
	msgUsageRename = "❌ Usage: /rename <old name> <new name>"

	msgAdminOnly   = "⛔ This command is for the bot admin."
	msgStaleButton = "🤷 This button is no longer active."
	msgSlowDown    = "🐢 Too many requests, slow down a little."
)

const helpText = `🎧 Playlist Bot

/newplaylist <name> - create a playlist
/playlists - list your playlists
/add <name> - forward audio into a playlist
/finish - stop adding tracks
/show <name> - send a playlist
/remove <name> <index> - remove a track
/rename <old> <new> - rename a playlist
/cover <name> - set a cover photo
/share <name> - get a share link
/delete <name> - delete a playlist
/cancel - abort the current step

Inline: type @%s <name> in any chat to share a playlist.`

func textCreated(name string) string { return fmt.Sprintf("✅ Playlist '%s' created!", name) }

func textExists(name string) string {
	return fmt.Sprintf("❌ Playlist '%s' already exists.", name)
}

func textNotFound(name string) string { return fmt.Sprintf("❌ Playlist '%s' not found.", name) }

func textNameTooLong(max int) string {
	return fmt.Sprintf("❌ Playlist name is too long, keep it under %d bytes.", max+1)
}

func textActions(name string) string {
	return fmt.Sprintf("✍🏻 Select action for playlist '%s':", name)
}

func textAddReady(name string, window time.Duration) string {
	return fmt.Sprintf("🎵 Ready to add tracks to playlist: '%s'\n⏰ Forward audio files within %d seconds", name, int(window.Seconds()))
}

func textAddExpired(window time.Duration) string {
	return fmt.Sprintf("⏰ Time window expired (%ds)\n📝 Send /add <playlist> again to continue adding tracks.", int(window.Seconds()))
}

func textAdded(title, name string, total int) string {
	return fmt.Sprintf("✅ Added: %s\n📂 To playlist: '%s'\n🎵 Total added this session: %d", title, name, total)
}

func textTrackExists(title, name string) string {
	return fmt.Sprintf("❌ Track '%s' already exists in '%s' playlist.", title, name)
}

func textAddFailed(title, name string) string {
	return fmt.Sprintf("❌ Failed to add '%s' to %s.", title, name)
}

func textFinished(name string, n int) string {
	return fmt.Sprintf("✅ Done. %d track(s) added to '%s' this session.", n, name)
}

func textShowHeader(name string, n int) string {
	return fmt.Sprintf("🎧 Playlist '%s' with %d tracks", name, n)
}

func textEmpty(name string) string { return fmt.Sprintf("❌ Playlist '%s' is empty.", name) }

func textShareHeader(escapedName string) string {
	return fmt.Sprintf("🎧 *%s* Playlist shared with you:", escapedName)
}

func textShareLink(link string) string { return fmt.Sprintf("🔗 Share this link:\n`%s`", link) }

func textChooseIndex(name string) string {
	return fmt.Sprintf("📝 Choose track index from '%s' to remove.\nYou can see index numbers by tap on 📋 Show Musics button", name)
}

func textRemoved(pos int, name string) string {
	return fmt.Sprintf("✅ Track #%d removed from '%s'.", pos, name)
}

func textCantRemove(pos int, name string) string {
	return fmt.Sprintf("❌ Can't remove track #%d from '%s'.", pos, name)
}

func textConfirmDelete(name string) string {
	return fmt.Sprintf("? Are you sure you want to delete '%s'?", name)
}

func textDeleted(name string) string { return fmt.Sprintf("🗑 Playlist '%s' deleted.", name) }

func textAskRenameTo(name string) string { return fmt.Sprintf("🆕 Enter new name for '%s'", name) }

func textNameTaken(name string) string {
	return fmt.Sprintf("❌ '%s' already exists, can't rename.", name)
}

func textRenamed(oldName, newName string) string {
	return fmt.Sprintf("✅ Playlist renamed from '%s' to '%s'.", oldName, newName)
}

func textAskCover(name string) string {
	return fmt.Sprintf("📸 Send photo to set as cover image for '%s'.\nAttention, send photo not file.", name)
}

func textCoverSet(name string) string { return fmt.Sprintf("✅ Cover image set for '%s'", name) }

func textStats(users, playlists, tracks int64) string {
	return fmt.Sprintf("📊 Users: %d\n🎧 Playlists: %d\n🎵 Tracks: %d", users, playlists, tracks)
}

func textSendFailures(n uint64) string { return fmt.Sprintf("\n⚠️ Failed sends: %d", n) }
