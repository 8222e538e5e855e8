package protocol

// ShowPrompt displays an action prompt on the host with one button per
// choice. Any prompt already showing is hidden first.
func (p *Port) ShowPrompt(text string, choices []string) {
	p.HidePrompt()
	p.Send("//action:prompt_begin " + text)
	for _, choice := range choices {
		p.Send("//action:prompt_button " + choice)
	}
	p.Send("//action:prompt_show")
}

// HidePrompt dismisses any action prompt showing on the host.
func (p *Port) HidePrompt() {
	p.Send("//action:prompt_end")
}
