package browser

// Page-side snippets. Each runs with the target element bound to this (for
// element scripts) or against document (for page scripts).

const isVisibleFn = `function (el) {
	if (!el) return false;
	const s = window.getComputedStyle(el);
	if (s.display === 'none' || s.visibility === 'hidden') return false;
	return el.offsetParent !== null || el.getClientRects().length > 0;
}`

const jsCounter = `(name) => {
	const el = document.getElementsByName(name)[0] || document.getElementById(name);
	if (!el) return null;
	const n = parseInt(el.value, 10);
	return isNaN(n) ? null : n;
}`

const jsVisibleRows = `(prefix, suffix) => {
	const visible = ` + isVisibleFn + `;
	const out = [];
	for (const el of document.querySelectorAll('[id]')) {
		const id = el.id;
		if (!id.startsWith(prefix) || !id.endsWith(suffix)) continue;
		const mid = id.slice(prefix.length, id.length - suffix.length);
		if (!/^\d+$/.test(mid)) continue;
		if (visible(el)) out.push(parseInt(mid, 10));
	}
	return out;
}`

const jsRowPresent = `(id) => {
	const visible = ` + isVisibleFn + `;
	return visible(document.getElementById(id));
}`

const jsEnsureList = `(id) => {
	if (document.getElementById(id)) return false;
	const list = document.createElement('select');
	list.id = id;
	list.name = id;
	list.tabIndex = -1;
	list.style.position = 'absolute';
	list.style.left = '-9999px';
	list.style.top = '-9999px';
	(document.forms[0] || document.body).appendChild(list);
	return true;
}`

const jsHasGlobal = `(name) => typeof window[name] === 'function'`

const jsInvokeGlobal = `(name, args) => { window[name].apply(window, args); }`

const jsState = `() => {
	const visible = ` + isVisibleFn + `;
	const type = (this.type || this.tagName || '').toLowerCase();
	return {
		type: type,
		visible: visible(this),
		disabled: !!this.disabled,
		readOnly: !!this.readOnly,
	};
}`

// jsDispatch builds the event with the constructor matching kind. keyCode and
// which are read-only on KeyboardEvent; overriding them may throw and is
// ignored.
const jsDispatch = `(type, kind, bubbles, cancelable, key, keyCode) => {
	const init = { bubbles: bubbles, cancelable: cancelable };
	let ev;
	if (kind === 1) {
		ev = new FocusEvent(type, init);
	} else if (kind === 2) {
		init.key = key;
		ev = new KeyboardEvent(type, init);
		try {
			Object.defineProperty(ev, 'keyCode', { get: () => keyCode });
			Object.defineProperty(ev, 'which', { get: () => keyCode });
		} catch (e) {}
	} else {
		ev = new Event(type, init);
	}
	this.dispatchEvent(ev);
}`

const jsFocus = `() => { this.focus(); }`

const jsBlur = `() => { this.blur(); }`

const jsClick = `() => { this.click(); }`

const jsValue = `() => this.value == null ? '' : String(this.value)`

const jsSetValue = `(v) => { this.value = v; }`

const jsClearSelection = `() => {
	if (typeof this.select === 'function') this.select();
	try {
		this.setRangeText('', 0, String(this.value).length, 'end');
	} catch (e) {
		this.value = '';
	}
}`

const jsChecked = `() => !!this.checked`

const jsSetChecked = `(c) => { this.checked = c; }`

const jsEnable = `() => {
	this.disabled = false;
	this.readOnly = false;
	this.removeAttribute('disabled');
	this.removeAttribute('readonly');
}`

const jsSetAttribute = `(n, v) => { this.setAttribute(n, v); }`

const jsRemoveAttribute = `(n) => { this.removeAttribute(n); }`
