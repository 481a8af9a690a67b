// Package res holds static content shown by the preview window.
package res

// AboutContent contains the Markdown content for the About dialog.
const AboutContent = `Audio-reactive visualizer for ACE-Step songs.

**Preview:** pick one of ten presets, stack post-processing effects and swap the
background or album art while the song plays.

**Export:** render the same scene offline to a 1080p MP4 with the song as its
soundtrack. Exports can be reset at any time.

Presets, effects and saved scenes are listed by ` + "`acestep-vis presets`" + `.
`
